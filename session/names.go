package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"sync"
)

const (
	// Newly created files allowed per session
	MaxNewFiles = 5
)

var (
	ErrInvalidName  = errors.New("file name must be 1 to 5 Latin/Ukrainian letters or digits")
	ErrTooManyFiles = errors.New("cannot create new file, maximum number of files reached")

	nameRex = regexp.MustCompile(`^[a-zA-Zа-яА-ЯіїєґІЇЄҐ0-9]{1,5}$`)
)

// Checks result file name
func ValidateName(name string) error {
	if !nameRex.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Result files of one session. Files live in a single directory.
type Registry struct {
	lock    sync.Mutex
	dir     string
	created []string
	last    string
}

func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Name of the last file saved to, empty if none
func (r *Registry) Last() string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.last
}

// Whether another new file can be created
func (r *Registry) CanCreate() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.created) < MaxNewFiles
}

// Files created during the session
func (r *Registry) Created() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return slices.Clone(r.created)
}

// Appends records to the named file and remembers it as the last one.
// Returns total number of entries in the file.
func (r *Registry) Save(name string, records []Record) (int, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	isNew := !slices.Contains(r.created, name)
	if isNew && len(r.created) >= MaxNewFiles {
		return 0, ErrTooManyFiles
	}

	total, err := NewFileLog(filepath.Join(r.dir, name)).Append(records...)
	if err != nil {
		return 0, err
	}

	if isNew {
		r.created = append(r.created, name)
	}
	r.last = name
	return total, nil
}
