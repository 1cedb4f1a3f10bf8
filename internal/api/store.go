package api

import "sync"

// QueryStore keeps answered analogy queries so clients can fetch them again
// by id. The oldest entries are dropped once limit is reached.
type QueryStore struct {
	mu      sync.Mutex
	limit   int
	order   []string
	results map[string]AnalogyResponse
}

func NewQueryStore(limit int) *QueryStore {
	if limit <= 0 {
		limit = 1024
	}
	return &QueryStore{
		limit:   limit,
		results: make(map[string]AnalogyResponse),
	}
}

func (s *QueryStore) Put(resp AnalogyResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[resp.ID]; !ok {
		s.order = append(s.order, resp.ID)
	}
	s.results[resp.ID] = resp
	for len(s.order) > s.limit {
		delete(s.results, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *QueryStore) Get(id string) (AnalogyResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.results[id]
	return resp, ok
}

func (s *QueryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return false
	}
	delete(s.results, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}
