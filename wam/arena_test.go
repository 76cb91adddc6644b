package wam

import "testing"

func TestEnvStack_ReleaseTopFrame(t *testing.T) {
	s := &envStack{}
	e1 := s.push()
	e2 := s.push()
	s.release(e2, 0)
	if got := s.mark(); got != 1 {
		t.Errorf("mark = %d after releasing top frame, want 1", got)
	}
	s.release(e1, 0)
	if got := s.mark(); got != 0 {
		t.Errorf("mark = %d after releasing both frames, want 0", got)
	}
}

func TestEnvStack_ReleaseReusesSlot(t *testing.T) {
	s := &envStack{}
	for i := 0; i < 10000; i++ {
		e := s.push()
		e.Continuation = InstrAddr{Pos: i}
		s.release(e, 0)
	}
	if got := s.mark(); got != 0 {
		t.Errorf("mark = %d after push/release cycles, want 0", got)
	}
}

func TestEnvStack_ReleaseSkipsBuriedFrame(t *testing.T) {
	s := &envStack{}
	e1 := s.push()
	s.push()
	s.release(e1, 0)
	if got := s.mark(); got != 2 {
		t.Errorf("mark = %d, want 2: a buried frame must not be reclaimed", got)
	}
}

func TestEnvStack_ReleaseRespectsProtection(t *testing.T) {
	s := &envStack{}
	s.push()
	e2 := s.push()
	protected := s.mark()
	s.release(e2, protected)
	if got := s.mark(); got != 2 {
		t.Errorf("mark = %d, want 2: a protected frame must survive release", got)
	}
}
