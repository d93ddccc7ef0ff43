// Package auth implements the shell's colon-separated credential store
// (username:password:home-dir, one user per line) and the adduser write
// path, grounded on the line-oriented file loaders in
// other_examples/KaliforniaGator-SecShell-Go__secshell.go
// (core.LoadBlacklist / core.LoadWhitelist).
package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// User is one credential-store entry.
type User struct {
	Name     string
	Password string
	Home     string
}

// Store is the in-memory view of the credential file, kept in sync with
// disk on every Add.
type Store struct {
	path  string
	users map[string]User
}

// Load reads path into a Store. A missing file yields an empty store,
// not an error — the caller is responsible for seeding a root user if
// this is the first run.
func Load(path string) (*Store, error) {
	s := &Store{path: path, users: make(map[string]User)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		s.users[parts[0]] = User{Name: parts[0], Password: parts[1], Home: parts[2]}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Authenticate reports whether user/pass is a valid credential pair.
func (s *Store) Authenticate(user, pass string) bool {
	u, ok := s.users[user]
	return ok && u.Password == pass
}

// Exists reports whether user already has a credential entry.
func (s *Store) Exists(user string) bool {
	_, ok := s.users[user]
	return ok
}

// Lookup returns the stored entry for user, if any.
func (s *Store) Lookup(user string) (User, bool) {
	u, ok := s.users[user]
	return u, ok
}

// Add validates and appends a new user. The on-disk line format is
// exactly "name:password:home\n".
func (s *Store) Add(user, pass, home string) error {
	if user == "" || pass == "" {
		return fmt.Errorf("username and password must not be empty")
	}
	if s.Exists(user) {
		return fmt.Errorf("user %q already exists", user)
	}

	line := fmt.Sprintf("%s:%s:%s\n", user, pass, home)
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := f.WriteString(line)
	if err != nil {
		return err
	}
	if n != len(line) {
		return fmt.Errorf("short write appending credential line")
	}

	s.users[user] = User{Name: user, Password: pass, Home: home}
	return nil
}
