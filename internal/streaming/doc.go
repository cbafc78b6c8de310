/*
Package streaming provides timeout-protected chunked copying for HTTP
video responses.

# Overview

Slow or disconnected clients can hold server resources indefinitely when
streaming large files. This package copies from a reader to an
http.ResponseWriter one chunk at a time, flushing after each chunk, with
per-write and idle timeouts so a stalled connection is detected and torn
down instead of pinning a goroutine.

Unlike a generic chunked-transfer helper, Copy never sets framing headers:
range responses (206) carry an exact Content-Length and the handler owns
all header decisions.

# Usage

	n, err := streaming.Copy(r.Context(), w, file, streaming.DefaultConfig())
	if err != nil && !streaming.IsClientError(err) {
		logging.Error("stream failed after %d bytes: %v", n, err)
	}

IsClientError distinguishes client-side failures (disconnect, slow drain)
from server-side ones; handlers log the former at debug level only.

# Errors

  - ErrClientGone: request context canceled, the client left
  - ErrWriteTimeout: a single write exceeded Config.WriteTimeout, or no
    write succeeded within Config.IdleTimeout
  - ErrStreamCanceled: the stream was shut down programmatically
*/
package streaming
