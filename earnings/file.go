package earnings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileCache is a JSON object {"AAPL": "2026-02-01", ...} on disk. It is
// re-read on every lookup so an out-of-process refresh is picked up.
type FileCache struct {
	Path string

	mu sync.Mutex
}

func (c *FileCache) NextReportDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	all, err := c.All(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	d, ok := all[strings.ToUpper(symbol)]
	return d, ok, nil
}

func (c *FileCache) All(ctx context.Context) (map[string]time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, c.Path, err)
	}
	dates, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return dates, nil
}

// Replace writes atomically through a temp file and rename.
func (c *FileCache) Replace(ctx context.Context, dates map[string]time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(encode(dates), "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.Path), ".earnings-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.Path)
}
