// Command notectl creates, opens and revokes notes from a terminal.
//
//	notectl create [-ttl 10m] [-view-once] [-attempts n] [-request-id uuid] < secret.txt
//	notectl open [-verify-cmd 'fingerprint-check'] '<link>'
//	notectl delete <note-id>
//
// NOTECTL_API_URL, NOTECTL_TOKEN and NOTECTL_ORIGIN configure the client.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(newApp().run(ctx, os.Args[1:]))
}
