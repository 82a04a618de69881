// Package smtptest runs a minimal in-process SMTP server for tests. It
// speaks just enough ESMTP for net/smtp: EHLO, AUTH PLAIN, MAIL, RCPT,
// DATA, RSET, NOOP and QUIT. No STARTTLS is offered, which net/smtp accepts
// for PLAIN auth on loopback addresses.
package smtptest

import (
	"bufio"
	"encoding/base64"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
)

// Mail is one accepted message.
type Mail struct {
	From string
	To   []string
	Data string
}

// Server accepts SMTP sessions on a loopback port until the test ends.
type Server struct {
	Addr     string
	Username string
	Password string

	ln net.Listener
	wg sync.WaitGroup

	mu       sync.Mutex
	mails    []Mail
	sessions int
}

// NewServer starts a server accepting username/password.
func NewServer(t *testing.T, username, password string) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("smtptest: listen: %v", err)
	}
	s := &Server{Addr: ln.Addr().String(), Username: username, Password: password, ln: ln}

	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

// Mails returns the messages accepted so far.
func (s *Server) Mails() []Mail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Mail(nil), s.mails...)
}

// Sessions returns the number of connections accepted.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.sessions++
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(nc net.Conn) {
	defer nc.Close()
	c := textproto.NewConn(nc)
	reply := func(line string) { _ = c.PrintfLine("%s", line) }

	reply("220 smtptest ESMTP")
	authed := false
	var cur Mail

	for {
		line, err := c.ReadLine()
		if err != nil {
			return
		}
		verb, arg, _ := strings.Cut(line, " ")

		switch strings.ToUpper(verb) {
		case "EHLO", "HELO":
			reply("250-smtptest")
			reply("250 AUTH PLAIN")
		case "AUTH":
			authed = s.checkPlain(arg)
			if authed {
				reply("235 2.7.0 Authentication successful")
			} else {
				reply("535 5.7.8 Username and Password not accepted")
			}
		case "MAIL":
			if !authed {
				reply("530 5.7.0 Authentication Required")
				continue
			}
			cur = Mail{From: address(arg)}
			reply("250 2.1.0 OK")
		case "RCPT":
			cur.To = append(cur.To, address(arg))
			reply("250 2.1.5 OK")
		case "DATA":
			reply("354 Go ahead")
			data, err := readData(c.Reader.R)
			if err != nil {
				return
			}
			cur.Data = data
			s.mu.Lock()
			s.mails = append(s.mails, cur)
			s.mu.Unlock()
			reply("250 2.0.0 OK queued")
		case "RSET", "NOOP":
			reply("250 2.0.0 OK")
		case "QUIT":
			reply("221 2.0.0 closing connection")
			return
		default:
			reply("502 5.5.1 Unrecognized command")
		}
	}
}

func (s *Server) checkPlain(arg string) bool {
	mech, payload, _ := strings.Cut(arg, " ")
	if !strings.EqualFold(mech, "PLAIN") {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return false
	}
	parts := strings.Split(string(raw), "\x00")
	return len(parts) == 3 && parts[1] == s.Username && parts[2] == s.Password
}

// address strips "FROM:<a@b>" or "TO:<a@b>" down to a@b.
func address(arg string) string {
	_, addr, _ := strings.Cut(arg, ":")
	addr, _, _ = strings.Cut(strings.TrimSpace(addr), " ")
	return strings.Trim(addr, "<>")
}

func readData(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "." {
			return b.String(), nil
		}
		line = strings.TrimPrefix(line, ".")
		b.WriteString(line)
		b.WriteString("\r\n")
	}
}
