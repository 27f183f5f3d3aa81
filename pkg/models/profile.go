package models

// Profile is a named, persistent browser profile directory.
// Invariant: at most one session may hold a given profile at a time.
type Profile struct {
	Name           string `json:"name"`
	FilesystemPath string `json:"filesystem_path"`
	InUseBySession string `json:"in_use_by_session,omitempty"`
}

// Available reports whether the profile is free to allocate.
func (p Profile) Available() bool {
	return p.InUseBySession == ""
}
