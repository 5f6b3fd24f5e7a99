// Package client talks to a concordance server. Each call opens one
// connection, sends one request line and reads until the sentinel line.
package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

type Client struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// New returns a client for addr. timeout bounds each call when the context
// carries no deadline of its own.
func New(addr string, timeout time.Duration) *Client {
	return &Client{addr: addr, timeout: timeout}
}

// Do sends line and returns the response lines without the sentinel. A
// syntax-error response is returned as ErrSyntax.
func (c *Client) Do(ctx context.Context, line string) ([]string, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", c.addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	var lines []string
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		switch text := sc.Text(); text {
		case apperrors.DoneMarker:
			return lines, nil
		case apperrors.SyntaxErrorMarker:
			return lines, apperrors.Newf(apperrors.ErrSyntax, "server rejected %q", line)
		default:
			lines = append(lines, text)
		}
	}
	if err := sc.Err(); err != nil {
		return lines, fmt.Errorf("reading response: %w", err)
	}
	return lines, fmt.Errorf("reading response: connection closed before sentinel")
}

// Corpus is one entry of a LIST response.
type Corpus struct {
	ID   int
	Name string
}

func (c *Client) List(ctx context.Context) ([]Corpus, error) {
	lines, err := c.Do(ctx, "LIST")
	if err != nil {
		return nil, err
	}
	return ParseList(lines)
}

// ParseList decodes the count line followed by "[id] name" lines.
func ParseList(lines []string) ([]Corpus, error) {
	if len(lines) == 0 {
		return nil, apperrors.New(apperrors.ErrFormat, "empty corpus list")
	}
	n, err := strconv.Atoi(lines[0])
	if err != nil || n != len(lines)-1 {
		return nil, apperrors.Newf(apperrors.ErrFormat, "bad corpus count %q", lines[0])
	}
	out := make([]Corpus, 0, n)
	for _, l := range lines[1:] {
		idPart, name, ok := strings.Cut(l, " ")
		if !ok || !strings.HasPrefix(idPart, "[") || !strings.HasSuffix(idPart, "]") {
			return nil, apperrors.Newf(apperrors.ErrFormat, "bad corpus line %q", l)
		}
		id, err := strconv.Atoi(idPart[1 : len(idPart)-1])
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrFormat, "bad corpus line %q", l)
		}
		out = append(out, Corpus{ID: id, Name: name})
	}
	return out, nil
}

// Unit is a translation unit as read from the wire. Quality is -1 when the
// server sent no quality line.
type Unit struct {
	Quality float64
	Source  string
	Target  string
}

// Concordance runs a concordance verb such as "->" or "<=>" against corpus
// id and decodes the translation units.
func (c *Client) Concordance(ctx context.Context, verb string, id int, terms ...string) ([]Unit, error) {
	line := verb + " " + strconv.Itoa(id)
	if len(terms) > 0 {
		line += " " + strings.Join(terms, " ")
	}
	lines, err := c.Do(ctx, line)
	if err != nil {
		return nil, err
	}
	return ParseUnits(lines)
}

// ParseUnits decodes "% quality" / source / target line groups.
func ParseUnits(lines []string) ([]Unit, error) {
	var out []Unit
	for i := 0; i < len(lines); {
		u := Unit{Quality: -1}
		if q, ok := strings.CutPrefix(lines[i], "% "); ok {
			v, err := strconv.ParseFloat(q, 64)
			if err != nil {
				return nil, apperrors.Newf(apperrors.ErrFormat, "bad quality line %q", lines[i])
			}
			u.Quality = v
			i++
		}
		if i+1 >= len(lines) {
			return nil, apperrors.New(apperrors.ErrFormat, "truncated translation unit")
		}
		u.Source, u.Target = lines[i], lines[i+1]
		i += 2
		out = append(out, u)
	}
	return out, nil
}
