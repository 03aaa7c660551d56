package services

import "time"

// SetPracticeClock replaces time.Now for a practice service built by
// NewPracticeService.
func SetPracticeClock(svc PracticeService, now func() time.Time) {
	s := svc.(*practiceService)
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// PracticeSessionCount reports how many practice sessions are held.
func PracticeSessionCount(svc PracticeService) int {
	s := svc.(*practiceService)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
