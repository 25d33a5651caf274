package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/logging"
	"github.com/Physolia/ktechlab/internal/parser"
	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
)

// DefaultRemoteTimeout bounds one remote copy.
const DefaultRemoteTimeout = 60 * time.Second

// DefaultMaxSize bounds one transferred file when no limit is configured.
const DefaultMaxSize = 32 << 20

var (
	// ErrUnsupportedScheme is returned for locations that are neither local
	// paths nor http(s) URLs.
	ErrUnsupportedScheme = errors.New("unsupported location scheme")

	// ErrLocationNotAllowed is returned for local paths outside the transfer
	// root and for remote hosts that are not allowed.
	ErrLocationNotAllowed = errors.New("location not allowed")

	// ErrTooLarge is returned for files bigger than the transfer limit.
	ErrTooLarge = errors.New("file too large")
)

// TransferError reports a failed whole-file copy.
type TransferError struct {
	Op       string // "load" or "save"
	Location string
	Err      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("could not %s %s: %v", e.Op, e.Location, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// TransferOptions configures a Transfer.
type TransferOptions struct {
	// Root is the directory local locations must resolve inside. Relative
	// locations are taken from it. Without a root no local location is
	// allowed.
	Root string

	// AllowedHosts lists the remote hosts ("host" or "host:port") that may
	// be reached. Without any, remote locations are refused.
	AllowedHosts []string

	TempDir string
	Timeout time.Duration
	MaxSize int64
	Log     logging.Logger
}

// Transfer copies whole document files to and from local paths and http(s)
// URLs. Remote copies go through a temporary file that is removed on every
// exit path.
type Transfer struct {
	client  *http.Client
	tempDir string
	root    string // absolute
	real    string // root with symlinks resolved
	hosts   map[string]bool
	maxSize int64
	local   *osfs.FS
	log     logging.Logger
}

// NewTransfer returns a Transfer confined to the root and hosts of opts.
func NewTransfer(opts TransferOptions) *Transfer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	t := &Transfer{
		tempDir: opts.TempDir,
		hosts:   make(map[string]bool, len(opts.AllowedHosts)),
		maxSize: maxSize,
		local:   osfs.NewFS(),
		log:     logging.OrDiscard(opts.Log),
	}
	for _, h := range opts.AllowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			t.hosts[h] = true
		}
	}
	if opts.Root != "" {
		if root, err := filepath.Abs(opts.Root); err == nil {
			t.root, t.real = root, root
			if resolved, err := filepath.EvalSymlinks(root); err == nil {
				t.real = resolved
			}
		} else {
			t.log.Warnf("local transfers disabled: %v", err)
		}
	}

	t.client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return t.checkHost(req.URL)
		},
	}
	return t
}

func (t *Transfer) remote(location string) (bool, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Windows drive letters parse as one letter schemes.
		return false, nil
	}
	switch u.Scheme {
	case "file":
		return false, nil
	case "http", "https":
		return true, t.checkHost(u)
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

func (t *Transfer) checkHost(u *url.URL) error {
	if t.hosts[strings.ToLower(u.Host)] || t.hosts[strings.ToLower(u.Hostname())] {
		return nil
	}
	return fmt.Errorf("%w: host %q", ErrLocationNotAllowed, u.Host)
}

// localPath maps a location to a path of the local file system, refusing
// anything that resolves outside the root.
func (t *Transfer) localPath(location string) (string, error) {
	if t.root == "" {
		return "", fmt.Errorf("%w: local files are disabled", ErrLocationNotAllowed)
	}
	if u, err := url.Parse(location); err == nil && u.Scheme == "file" {
		location = u.Path
	}

	p := location
	if !filepath.IsAbs(p) {
		p = filepath.Join(t.root, p)
	}
	p = filepath.Clean(p)
	if !within(t.root, p) && !within(t.real, p) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrLocationNotAllowed, location, t.root)
	}

	// A symlink inside the root may still point out of it.
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	} else if dir, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		p = filepath.Join(dir, filepath.Base(p))
	}
	if !within(t.real, p) && !within(t.root, p) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrLocationNotAllowed, location, t.root)
	}
	return t.local.FromOSPath(p)
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (t *Transfer) readLocal(p string) ([]byte, error) {
	info, err := hackpadfs.Stat(t.local, p)
	if err != nil {
		return nil, err
	}
	if info.Size() > t.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}
	return hackpadfs.ReadFile(t.local, p)
}

// Load reads the whole file at location.
func (t *Transfer) Load(ctx context.Context, location string) ([]byte, error) {
	remote, err := t.remote(location)
	if err != nil {
		return nil, &TransferError{Op: "load", Location: location, Err: err}
	}

	var data []byte
	if remote {
		data, err = t.download(ctx, location)
	} else {
		var p string
		if p, err = t.localPath(location); err == nil {
			data, err = t.readLocal(p)
		}
	}
	if err != nil {
		return nil, &TransferError{Op: "load", Location: location, Err: err}
	}
	return data, nil
}

// Save writes data as the whole file at location.
func (t *Transfer) Save(ctx context.Context, location string, data []byte) error {
	remote, err := t.remote(location)
	if err != nil {
		return &TransferError{Op: "save", Location: location, Err: err}
	}

	if int64(len(data)) > t.maxSize {
		return &TransferError{Op: "save", Location: location, Err: fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))}
	}

	if remote {
		err = t.upload(ctx, location, data)
	} else {
		var p string
		if p, err = t.localPath(location); err == nil {
			err = hackpadfs.WriteFullFile(t.local, p, data, 0644)
		}
	}
	if err != nil {
		return &TransferError{Op: "save", Location: location, Err: err}
	}
	return nil
}

// withTempFile runs fn on a fresh temporary file and removes it afterwards.
func (t *Transfer) withTempFile(fn func(f *os.File) error) error {
	f, err := os.CreateTemp(t.tempDir, "ktechlab-transfer-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer func() {
		f.Close()
		if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			t.log.Warnf("could not remove temporary file %s: %v", f.Name(), err)
		}
	}()
	return fn(f)
}

func (t *Transfer) download(ctx context.Context, location string) ([]byte, error) {
	var data []byte
	err := t.withTempFile(func(f *os.File) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return err
		}
		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned %s", resp.Status)
		}

		n, err := io.Copy(f, io.LimitReader(resp.Body, t.maxSize+1))
		if err != nil {
			return fmt.Errorf("downloading: %w", err)
		}
		if n > t.maxSize {
			return fmt.Errorf("%w: more than %d bytes", ErrTooLarge, t.maxSize)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		data, err = io.ReadAll(f)
		return err
	})
	if err != nil {
		return nil, err
	}
	t.log.Debugf("downloaded %d bytes from %s", len(data), location)
	return data, nil
}

func (t *Transfer) upload(ctx context.Context, location string, data []byte) error {
	return t.withTempFile(func(f *os.File) error {
		if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
			return err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, location, f)
		if err != nil {
			return err
		}
		req.ContentLength = int64(len(data))
		req.Header.Set("Content-Type", "application/xml")

		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("server returned %s", resp.Status)
		}
		t.log.Debugf("uploaded %d bytes to %s", len(data), location)
		return nil
	})
}

// LoadDocument loads and parses the document at location.
func LoadDocument(ctx context.Context, t *Transfer, location string) (*document.Data, error) {
	text, err := t.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	return parser.Unmarshal(text, t.log)
}

// SaveDocument serializes data and writes it to location.
func SaveDocument(ctx context.Context, t *Transfer, location string, data *document.Data) error {
	text, err := parser.Marshal(data)
	if err != nil {
		return err
	}
	return t.Save(ctx, location, text)
}
