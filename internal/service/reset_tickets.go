package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const resetTicketCapacity = 4096

// resetTicketStore holds short-lived single-use tickets proving a
// password-reset code was already validated. The verification code is
// consumed by that first validation, so the final password-set step
// presents a ticket instead of re-validating the code.
type resetTicketStore struct {
	cache *expirable.LRU[string, string]
}

func newResetTicketStore(ttl time.Duration) *resetTicketStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &resetTicketStore{
		cache: expirable.NewLRU[string, string](resetTicketCapacity, nil, ttl),
	}
}

func (s *resetTicketStore) Issue(email string) string {
	ticket := newToken()
	s.cache.Add(ticket, email)
	return ticket
}

// Consume removes the ticket when it exists, is unexpired and belongs
// to the given address.
func (s *resetTicketStore) Consume(email, ticket string) bool {
	owner, ok := s.cache.Get(ticket)
	if !ok || owner != email {
		return false
	}
	s.cache.Remove(ticket)
	return true
}
