// Package irdbsync fetches a mirrored tree of community-maintained
// lircd.conf remote definitions from a configured FTP mirror, landing
// them in a local directory where internal/keymapwatch picks them
// up — the bulk-provisioning path for Legacy Ingest when an operator
// wants every remote the community has ever documented rather than
// hand-authoring one keymap file at a time.
package irdbsync

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// Config configures the FTP mirror to sync from.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	RemoteRoot string // remote directory tree to mirror, e.g. "/remotes"
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = 21
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// Sync connects to the configured FTP mirror, walks RemoteRoot, and
// downloads every *.conf file it finds into localDir, skipping files
// whose size already matches what's on disk. It returns the number of
// files newly downloaded.
func Sync(cfg Config, localDir string) (int, error) {
	conn, err := ftp.Dial(cfg.addr(), ftp.DialWithTimeout(10*time.Second))
	if err != nil {
		return 0, fmt.Errorf("irdbsync: connect to %s: %w", cfg.addr(), err)
	}
	defer conn.Quit()

	username := cfg.Username
	if username == "" {
		username = "anonymous"
	}
	if err := conn.Login(username, cfg.Password); err != nil {
		return 0, fmt.Errorf("irdbsync: login: %w", err)
	}

	root := cfg.RemoteRoot
	if root == "" {
		root = "."
	}

	if err := os.MkdirAll(localDir, 0755); err != nil {
		return 0, fmt.Errorf("irdbsync: create %s: %w", localDir, err)
	}

	n, err := syncDir(conn, root, localDir)
	if err != nil {
		return n, fmt.Errorf("irdbsync: %w", err)
	}
	return n, nil
}

func syncDir(conn *ftp.ServerConn, remoteDir, localDir string) (int, error) {
	entries, err := conn.List(remoteDir)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", remoteDir, err)
	}

	downloaded := 0
	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		remotePath := remoteDir + "/" + entry.Name

		switch entry.Type {
		case ftp.EntryTypeFolder:
			n, err := syncDir(conn, remotePath, filepath.Join(localDir, entry.Name))
			if err != nil {
				return downloaded, err
			}
			downloaded += n
		case ftp.EntryTypeFile:
			if !strings.HasSuffix(entry.Name, ".conf") {
				continue
			}
			ok, err := downloadIfChanged(conn, remotePath, filepath.Join(localDir, entry.Name), entry.Size)
			if err != nil {
				return downloaded, err
			}
			if ok {
				downloaded++
			}
		}
	}
	return downloaded, nil
}

func downloadIfChanged(conn *ftp.ServerConn, remotePath, localPath string, remoteSize uint64) (bool, error) {
	if fi, err := os.Stat(localPath); err == nil && uint64(fi.Size()) == remoteSize {
		return false, nil
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return false, fmt.Errorf("retrieve %s: %w", remotePath, err)
	}
	defer resp.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return false, fmt.Errorf("create %s: %w", filepath.Dir(localPath), err)
	}

	out, err := os.Create(localPath)
	if err != nil {
		return false, fmt.Errorf("create %s: %w", localPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp); err != nil {
		return false, fmt.Errorf("write %s: %w", localPath, err)
	}
	return true, nil
}
