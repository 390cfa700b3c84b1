package handler

import (
	"github.com/chunksloader/server/internal/net"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// HandleAuth checks the console password against the configured bcrypt hash.
func HandleAuth(sess Session, args *Args, deps *Deps) {
	pw := args.Rest()
	if !args.ok(sess) {
		return
	}
	hash := deps.Config.Console.PasswordHash
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)); err != nil {
		deps.Log.Warn("console authentication failed", zap.Error(err))
		sess.Send("Wrong password.")
		return
	}
	sess.SetState(net.StateAuthenticated)
	sess.Send("Authenticated.")
}

// InitialState is the state a new console session starts in. Without a
// configured password hash every session is trusted.
func InitialState(passwordHash string) net.SessionState {
	if passwordHash == "" {
		return net.StateAuthenticated
	}
	return net.StateConnected
}
