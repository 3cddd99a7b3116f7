// Package account implements the username/password store: lexical validation, an
// in-memory map, and append-only CSV persistence with disaster-dump fallback. Every public
// method holds the store's lock for its entire duration, including nested disk writes, per
// the single mutual-exclusion discipline the whole server follows.
package account

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/seekerror/logw"
)

// unsavedThreshold is the number of newly-added accounts the store will buffer in memory
// before appending them to disk as a batch.
const unsavedThreshold = 10

// disasterSuffix names the secondary file a failed flush is dumped to before falling back
// to the error log.
const disasterSuffix = ".disaster"

type credentials struct {
	username, password string
}

// Store is the account store: username -> password, plus the accounts file path the
// unsaved batch is flushed to.
type Store struct {
	mu sync.Mutex

	path     string
	accounts map[string]string
	unsaved  []credentials
}

// New returns a store backed by path, loading any accounts already persisted there. A
// missing file is not an error: it means a fresh install.
func New(ctx context.Context, path string) (*Store, error) {
	s := &Store{path: path, accounts: map[string]string{}}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open accounts file: %w", err)
	}
	defer f.Close()

	if err := s.load(f); err != nil {
		return nil, err
	}
	logw.Infof(ctx, "Loaded %v accounts from %v", len(s.accounts), path)
	return s, nil
}

func (s *Store) load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			return fmt.Errorf("accounts file: malformed row %q", line)
		}
		s.accounts[parts[0]] = parts[1]
	}
	return scanner.Err()
}

// ValidUsername reports whether s is non-empty and free of commas and whitespace.
func ValidUsername(s string) bool {
	return validField(s)
}

// ValidPassword reports whether s is non-empty and free of commas and whitespace.
func ValidPassword(s string) bool {
	return validField(s)
}

func validField(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, ", \t\r\n")
}

// UsernameExists reports whether username already has an account.
func (s *Store) UsernameExists(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.accounts[username]
	return ok
}

// ValidCredentials reports whether username exists and password matches it exactly.
func (s *Store) ValidCredentials(username, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pw, ok := s.accounts[username]
	return ok && pw == password
}

// AddAccount creates a new account if username and password are both valid and username is
// not already taken. On success the account is added to the in-memory map and the unsaved
// batch; once the batch reaches unsavedThreshold, it is flushed to disk.
func (s *Store) AddAccount(ctx context.Context, username, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ValidUsername(username) || !ValidPassword(password) {
		return false
	}
	if _, exists := s.accounts[username]; exists {
		return false
	}

	s.accounts[username] = password
	s.unsaved = append(s.unsaved, credentials{username: username, password: password})

	if len(s.unsaved) >= unsavedThreshold {
		s.flush(ctx)
	}
	return true
}

// Save flushes any unsaved accounts to disk unconditionally; called from the shutdown hook.
func (s *Store) Save(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.unsaved) == 0 {
		return
	}
	s.flush(ctx)
}

// flush appends the unsaved batch to the accounts file. Must be called with s.mu held. On
// failure the unsaved batch is left intact (so a later flush can retry) and a disaster dump
// is attempted.
func (s *Store) flush(ctx context.Context) {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logw.Errorf(ctx, "accounts: open %v for append: %v", s.path, err)
		s.dump(ctx)
		return
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, c := range s.unsaved {
		if _, err := fmt.Fprintf(w, "%v,%v\n", c.username, c.password); err != nil {
			logw.Errorf(ctx, "accounts: write row for %v: %v", c.username, err)
			s.dump(ctx)
			return
		}
	}
	if err := w.Flush(); err != nil {
		logw.Errorf(ctx, "accounts: flush %v: %v", s.path, err)
		s.dump(ctx)
		return
	}

	s.unsaved = nil
}

// dump writes the unsaved batch to a secondary disaster file; if even that fails, it is
// written to the error log so a human can recover the data by hand. Must be called with
// s.mu held.
func (s *Store) dump(ctx context.Context) {
	var sb strings.Builder
	for _, c := range s.unsaved {
		fmt.Fprintf(&sb, "%v,%v\n", c.username, c.password)
	}

	if err := os.WriteFile(s.path+disasterSuffix, []byte(sb.String()), 0644); err != nil {
		logw.Errorf(ctx, "accounts: disaster dump to %v failed: %v; unsaved accounts follow:\n%v",
			s.path+disasterSuffix, err, sb.String())
		return
	}
	logw.Errorf(ctx, "accounts: wrote disaster dump of %d unsaved accounts to %v", len(s.unsaved), s.path+disasterSuffix)
}
