// Package netif implements the Net Interface component (spec.md §4.10): a
// length-prefixed framed codec over a stream socket, invoke/response/close
// verbs, and a response broker with a per-request inactivity timer.
// Grounded directly on minitunnel.Tunnel's handshake/mux/TID-routing
// structure — swap minitunnel's gob framing for the length-prefixed kgr
// binary frame the wire format mandates — and on ron's heartbeat timer
// for the per-invoke timeout (one-shot here: the single response stops it).
package netif

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/slkerr"
)

const maxFrameLen = 1 << 26 // 64MiB; guards against a corrupt length header

// writeFrame writes v as a 32-bit little-endian length prefix followed by
// its binary-codec encoding.
func writeFrame(w io.Writer, v kgr.Value) error {
	payload, err := kgr.EncodeBinary(v)
	if err != nil {
		return err
	}
	if len(payload) > maxFrameLen {
		return slkerr.New(slkerr.MessageTooLarge, "netif: frame of %d bytes exceeds limit", len(payload))
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// readFrame reads one length-prefixed frame and decodes it.
func readFrame(r io.Reader) (kgr.Value, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return kgr.Value{}, err
	}
	n := binary.LittleEndian.Uint32(header[:])
	if n > maxFrameLen {
		return kgr.Value{}, slkerr.New(slkerr.MessageTooLarge, "netif: incoming frame of %d bytes exceeds limit", n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return kgr.Value{}, err
	}
	v, _, err := kgr.DecodeBinary(payload)
	if err != nil {
		return kgr.Value{}, fmt.Errorf("netif: %w", err)
	}
	return v, nil
}
