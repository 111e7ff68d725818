package smtp

import (
	"net"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// Server 包装 go-smtp 服务器并施加连接限制。
type Server struct {
	srv     *gosmtp.Server
	limiter *ConnectionLimiter
	log     *zap.Logger
}

// NewServer 创建收信 SMTP 服务器。
func NewServer(bindAddr, domain string, backend *Backend, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	srv := gosmtp.NewServer(backend)
	srv.Addr = bindAddr
	srv.Domain = domain
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.MaxMessageBytes = maxMessageSize
	srv.MaxRecipients = 10
	srv.AllowInsecureAuth = true

	return &Server{
		srv:     srv,
		limiter: NewConnectionLimiter(100, 20),
		log:     log,
	}
}

// ListenAndServe 监听并处理入站连接。
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.srv.Serve(&limitedListener{Listener: ln, limiter: s.limiter, log: s.log})
}

// Close 关闭服务器。
func (s *Server) Close() error {
	return s.srv.Close()
}

// limitedListener 在 Accept 阶段应用连接限流。
type limitedListener struct {
	net.Listener
	limiter *ConnectionLimiter
	log     *zap.Logger
}

func (l *limitedListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		if !l.limiter.Acquire() {
			l.log.Warn("smtp connection rejected by limiter",
				zap.String("remote", conn.RemoteAddr().String()))
			conn.Close()
			continue
		}

		return &limitedConn{Conn: conn, limiter: l.limiter}, nil
	}
}

// limitedConn 在连接关闭时归还许可。
type limitedConn struct {
	net.Conn
	limiter  *ConnectionLimiter
	released bool
}

func (c *limitedConn) Close() error {
	if !c.released {
		c.released = true
		c.limiter.Release()
	}
	return c.Conn.Close()
}
