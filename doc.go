/*
Package transmission provides a client for the Transmission daemon RPC protocol.

Highlights:
  - Session token handling with a single transparent retry when the daemon rotates it
  - Typed, field-scoped accessors for groups of daemon settings
  - Codec and merge logic for tiered tracker lists
  - Structured errors that tell transport, server and decoding failures apart

Quick start:

	import (
	    "context"
	    "log"

	    "github.com/jfxdev/go-transmission"
	)

	func main() {
	    client, err := transmission.New(transmission.Config{
	        BaseURL:  "http://localhost:9091/transmission/rpc",
	        Username: "admin",
	        Password: "password",
	    })
	    if err != nil {
	        log.Fatal(err)
	    }
	    defer client.Close()

	    settings, err := client.GetDownloadingServerSettings(context.Background())
	    if err != nil {
	        log.Fatal(err)
	    }
	    log.Println(settings.DownloadDirectory)
	}

Calls that are not covered by a typed accessor can be made with PerformRequest:

	stats, err := transmission.PerformRequest[transmission.SessionStats](ctx, client,
	    transmission.RequestBody{Method: transmission.MethodSessionStats}, "stats")
*/
package transmission
