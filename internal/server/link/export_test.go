package link

// Bind exposes bind so tests can interleave it with a concurrent close.
func (h *Hub) Bind(c *Conn, id, name string, created bool) { h.bind(c, id, name, created) }
