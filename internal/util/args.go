package util

// WithDefaultCommand returns args with cmd inserted after the program name
// unless args already select it.
func WithDefaultCommand(args []string, cmd string) []string {
	if len(args) >= 2 && args[1] == cmd {
		return args
	}
	out := make([]string, 0, len(args)+1)
	if len(args) > 0 {
		out = append(out, args[0])
	}
	out = append(out, cmd)
	if len(args) > 1 {
		out = append(out, args[1:]...)
	}
	return out
}
