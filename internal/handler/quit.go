package handler

func HandleQuit(sess Session, _ *Args, _ *Deps) {
	sess.Send("Bye.")
	sess.CloseAfterFlush()
}

func HandleHelp(sess Session, reg *Registry) {
	sess.Send("Commands:")
	for _, line := range reg.Usage(sess.State()) {
		sess.Send("  " + line)
	}
}
