package main

import (
	"social-signals/cmd/signals/commands"
	"social-signals/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
