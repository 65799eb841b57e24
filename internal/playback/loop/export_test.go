// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loop

// QueueLen reports how many work items are waiting to run.
func (l *Loop) QueueLen() int { return len(l.queue) }
