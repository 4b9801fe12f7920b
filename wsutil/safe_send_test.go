package wsutil

import "testing"

func TestSafeSend(t *testing.T) {
	ch := make(chan []byte, 1)

	if !SafeSend(ch, []byte("a")) {
		t.Error("expected the first send to succeed")
	}
	if SafeSend(ch, []byte("b")) {
		t.Error("expected a send on a full channel to be dropped")
	}

	<-ch
	close(ch)
	if SafeSend(ch, []byte("c")) {
		t.Error("expected a send on a closed channel to report false")
	}
}
