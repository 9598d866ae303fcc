package loader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

const ftpDialTimeout = 30 * time.Second

// Load resolves source as either a local file path or an ftp:// URL and
// feeds the contents through LoadCSV.
func Load(ctx context.Context, sink Sink, source string) (loaded, skipped int, err error) {
	if strings.HasPrefix(source, "ftp://") {
		return loadFTP(ctx, sink, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return 0, 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return LoadCSV(ctx, sink, f)
}

func loadFTP(ctx context.Context, sink Sink, source string) (int, int, error) {
	u, err := url.Parse(source)
	if err != nil {
		return 0, 0, fmt.Errorf("parse ftp url: %w", err)
	}
	host := u.Host
	if u.Port() == "" {
		host += ":21"
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(ftpDialTimeout))
	if err != nil {
		return 0, 0, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		return 0, 0, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		return 0, 0, fmt.Errorf("ftp retr %s: %w", u.Path, err)
	}
	defer resp.Close()

	// The CSV reader wants a plain io.Reader; buffering the whole file
	// keeps the FTP data connection from timing out mid-transaction.
	body, err := io.ReadAll(resp)
	if err != nil {
		return 0, 0, fmt.Errorf("ftp read: %w", err)
	}
	return LoadCSV(ctx, sink, strings.NewReader(string(body)))
}
