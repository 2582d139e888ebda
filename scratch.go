package ora

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// scratch is a private temporary directory used to hand PNG files to and
// from the host.
type scratch struct {
	dir string
}

func newScratch(parent string) (*scratch, error) {
	dir, err := os.MkdirTemp(parent, "ora-")
	if err != nil {
		return nil, fsError("mkdir", parent, err)
	}
	return &scratch{dir: dir}, nil
}

func (s *scratch) path(name string) string {
	return filepath.Join(s.dir, name)
}

// discard removes a scratch file. A missing file is not an error.
func (s *scratch) discard(name string) {
	if err := removeFile(s.path(name)); err != nil && !os.IsNotExist(err) {
		Logger().WithError(err).WithField("path", s.path(name)).Debug("ora: scratch file not removed")
	}
}

// remove deletes the directory and everything in it.
func (s *scratch) remove() {
	if err := os.RemoveAll(s.dir); err != nil {
		Logger().WithFields(logrus.Fields{"dir": s.dir, "error": err}).Warn("ora: scratch directory not removed")
	}
}
