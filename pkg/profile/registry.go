// Package profile implements the Profile Registry (C1): allocation and
// release of named, persistent browser profile directories.
package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

// ErrNoProfileAvailable is returned when allocation exhausts every
// strategy without finding or creating a usable profile.
var ErrNoProfileAvailable = errors.New("no profile available")

// entry tracks one profile's allocation state alongside its per-profile
// mutex, so simultaneous allocation requests never race on the same name.
type entry struct {
	mu        sync.Mutex
	profile   models.Profile
	heldBy    string // session ID, empty if free
}

// Registry manages the set of browser profiles under a root directory.
// A profile is "free" when no Session currently holds it.
type Registry struct {
	mu          sync.Mutex
	root        string
	defaultName string
	entries     map[string]*entry
	autoSeq     int
}

// NewRegistry creates a Registry rooted at root, auto-discovering any
// existing on-disk profile directories the way the original
// chrome_profile_finder did its directory scan. root is created if it
// does not exist.
func NewRegistry(root, defaultName string) (*Registry, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("profile: create profiles root: %w", err)
	}

	r := &Registry{
		root:        root,
		defaultName: defaultName,
		entries:     make(map[string]*entry),
	}

	discovered, err := discoverProfiles(root)
	if err != nil {
		return nil, fmt.Errorf("profile: discover existing profiles: %w", err)
	}
	for _, name := range discovered {
		r.entries[name] = &entry{profile: models.Profile{
			Name:           name,
			FilesystemPath: filepath.Join(root, name),
		}}
	}

	slog.Info("Profile registry initialized",
		"root", root, "discovered", len(discovered), "default_profile", defaultName)

	return r, nil
}

// discoverProfiles scans root for directories that look like a browser
// profile (they contain Default/, Preferences, or Local State).
func discoverProfiles(root string) ([]string, error) {
	items, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, item := range items {
		if !item.IsDir() || len(item.Name()) > 0 && item.Name()[0] == '.' {
			continue
		}
		path := filepath.Join(root, item.Name())
		if looksLikeProfile(path) {
			names = append(names, item.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func looksLikeProfile(path string) bool {
	for _, marker := range []string{"Default", "Preferences", "Local State"} {
		if _, err := os.Stat(filepath.Join(path, marker)); err == nil {
			return true
		}
	}
	return false
}

// Allocate implements the ordered allocation algorithm:
// (1) preferred, if given and free, created under that name when no such
// profile exists yet; (2) the configured default profile, if free; (3)
// the first free profile from the on-disk set; (4) a newly created
// profile with an auto-incremented name (google_1, google_2, …).
func (r *Registry) Allocate(sessionID, preferred string) (models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if preferred != "" {
		if e, ok := r.entries[preferred]; ok {
			if p, ok := r.tryHold(e, sessionID); ok {
				return p, nil
			}
		} else {
			path := filepath.Join(r.root, preferred)
			if err := os.MkdirAll(path, 0o755); err != nil {
				return models.Profile{}, fmt.Errorf("profile: create %s: %w", preferred, err)
			}
			e := &entry{
				profile: models.Profile{Name: preferred, FilesystemPath: path, InUseBySession: sessionID},
				heldBy:  sessionID,
			}
			r.entries[preferred] = e
			slog.Info("Created new profile", "profile", preferred, "path", path)
			return e.profile, nil
		}
	}

	if r.defaultName != "" && r.defaultName != preferred {
		if e, ok := r.entries[r.defaultName]; ok {
			if p, ok := r.tryHold(e, sessionID); ok {
				return p, nil
			}
		}
	}

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p, ok := r.tryHold(r.entries[name], sessionID); ok {
			return p, nil
		}
	}

	return r.createProfile(sessionID)
}

// tryHold attempts to hold e for sessionID under its per-profile mutex.
// Must be called with r.mu already held.
func (r *Registry) tryHold(e *entry, sessionID string) (models.Profile, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.heldBy != "" {
		return models.Profile{}, false
	}
	e.heldBy = sessionID
	e.profile.InUseBySession = sessionID
	return e.profile, true
}

func (r *Registry) createProfile(sessionID string) (models.Profile, error) {
	for {
		r.autoSeq++
		name := fmt.Sprintf("google_%d", r.autoSeq)
		if _, exists := r.entries[name]; exists {
			continue
		}

		path := filepath.Join(r.root, name)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return models.Profile{}, fmt.Errorf("profile: create %s: %w", name, err)
		}

		e := &entry{
			profile: models.Profile{Name: name, FilesystemPath: path, InUseBySession: sessionID},
			heldBy:  sessionID,
		}
		r.entries[name] = e

		slog.Info("Created new profile", "profile", name, "path", path)
		return e.profile, nil
	}
}

// Release frees the named profile, if held. Safe to call for a profile
// that is not currently held or does not exist.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	e, ok := r.entries[name]
	r.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	e.heldBy = ""
	e.profile.InUseBySession = ""
	e.mu.Unlock()
}

// ListProfiles returns every known profile name, sorted.
func (r *Registry) ListProfiles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status reports a profile's existence, login heuristic, and current
// holder.
type Status struct {
	Exists          bool
	LoggedInHeuristic bool
	InUseBySession  string
}

// Status returns the current status of the named profile. The
// login-in heuristic is advisory only — it inspects the
// profile directory for a platform auth cookie file or recognizable
// account metadata, mirroring persistent_profile.py's approach.
func (r *Registry) Status(name string) Status {
	r.mu.Lock()
	e, ok := r.entries[name]
	r.mu.Unlock()
	if !ok {
		return Status{Exists: false}
	}

	e.mu.Lock()
	holder := e.heldBy
	path := e.profile.FilesystemPath
	e.mu.Unlock()

	return Status{
		Exists:            true,
		LoggedInHeuristic: looksLoggedIn(path),
		InUseBySession:    holder,
	}
}

// looksLoggedIn is advisory only: it checks for a browser Cookies file
// or a populated Local State profile cache, either of which suggests the
// profile has completed at least one authenticated session before.
func looksLoggedIn(path string) bool {
	candidates := []string{
		filepath.Join(path, "Default", "Cookies"),
		filepath.Join(path, "Cookies"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return true
		}
	}
	if _, err := os.Stat(filepath.Join(path, "Local State")); err == nil {
		return true
	}
	return false
}
