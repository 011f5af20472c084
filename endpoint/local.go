package endpoint

import (
	"context"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// Local is a filesystem-backed Endpoint rooted at a directory. Size lookups
// are memoized in a small LRU so that repeated TryGetSize calls for the
// same name don't each pay a stat syscall.
type Local struct {
	root      string
	sizeCache *lru.Cache[string, uint64]
}

// NewLocal returns a Local endpoint rooted at dir, creating it if absent.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create endpoint root %s", dir)
	}
	cache, err := lru.New[string, uint64](4096)
	if err != nil {
		return nil, errors.Wrap(err, "create local endpoint size cache")
	}
	return &Local{root: dir, sizeCache: cache}, nil
}

func (l *Local) Root() string { return l.root }

func (l *Local) path(name string) string {
	return filepath.Join(l.root, filepath.FromSlash(name))
}

func (l *Local) Put(_ context.Context, name string, data []byte) error {
	p := l.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrapf(err, "create parent dir for %s", name)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	l.sizeCache.Add(name, uint64(len(data)))
	return nil
}

func (l *Local) Get(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(l.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", name)
		}
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return data, nil
}

func (l *Local) TryGetSize(_ context.Context, name string) (uint64, bool, error) {
	if n, ok := l.sizeCache.Get(name); ok {
		return n, true, nil
	}
	info, err := os.Stat(l.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, errors.Wrapf(err, "stat %s", name)
	}
	size := uint64(info.Size())
	l.sizeCache.Add(name, size)
	return size, true, nil
}

func (l *Local) List(_ context.Context, prefix string) ([]string, error) {
	root := l.path(prefix)
	var names []string
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == root {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", prefix)
	}
	return names, nil
}
