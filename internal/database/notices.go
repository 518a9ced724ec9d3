package database

import (
	"sync"

	"github.com/cybertec-postgresql/pgsplit/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Notice is a NOTICE, WARNING or INFO message the server sent while a
// statement ran, or a NOTIFY delivered to a channel the script listens on.
type Notice struct {
	Severity string
	Code     string
	Message  string
	Detail   string `json:",omitempty"`
	Hint     string `json:",omitempty"`
	Channel  string `json:",omitempty"` // set for notifications
}

// Notices collects asynchronous server messages per backend until the
// statement that caused them has finished.
type Notices struct {
	mu      sync.Mutex
	pending map[uint32][]Notice
}

// NewNotices creates an empty sink
func NewNotices() *Notices {
	return &Notices{pending: make(map[uint32][]Notice)}
}

// Install routes notices and notifications of every connection made with
// config into n.
func (n *Notices) Install(config *pgx.ConnConfig) {
	config.OnNotice = n.onNotice
	config.OnNotification = n.onNotification
}

func (n *Notices) onNotice(conn *pgconn.PgConn, notice *pgconn.Notice) {
	logger.Debugf("backend %d: %s: %s", conn.PID(), notice.Severity, notice.Message)
	n.add(conn.PID(), Notice{
		Severity: notice.Severity,
		Code:     notice.Code,
		Message:  notice.Message,
		Detail:   notice.Detail,
		Hint:     notice.Hint,
	})
}

func (n *Notices) onNotification(conn *pgconn.PgConn, notification *pgconn.Notification) {
	logger.Debugf("backend %d: notification on %q", conn.PID(), notification.Channel)
	n.add(conn.PID(), Notice{
		Severity: "NOTIFY",
		Message:  notification.Payload,
		Channel:  notification.Channel,
	})
}

func (n *Notices) add(pid uint32, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending[pid] = append(n.pending[pid], notice)
}

// Drain returns and forgets everything collected for backend pid.
func (n *Notices) Drain(pid uint32) []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	notices := n.pending[pid]
	delete(n.pending, pid)
	return notices
}
