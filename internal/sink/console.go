package sink

import (
	"fmt"

	"github.com/kaans/mqtli/internal/handler"
	"github.com/kaans/mqtli/internal/payload"
)

// writeConsole prints "<topic> [<format> | <N> bytes | <qos>] <retained-marker>"
// followed by the payload body on a second line, per spec.md 4.9.
func writeConsole(event handler.MessageEvent, converted payload.Format) error {
	body, err := converted.Bytes()
	if err != nil {
		return err
	}

	retained := ""
	if event.IncomingRetain {
		retained = "(retained)"
	}

	fmt.Printf("%s [%s | %d bytes | qos %d] %s\n", event.IncomingTopic, converted.Kind, len(body), event.IncomingQos, retained)
	fmt.Println(string(body))
	return nil
}
