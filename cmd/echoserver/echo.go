package main

import (
	"bytes"
	"context"

	"github.com/rs/zerolog"

	"github.com/selio/selio"
)

type handlerFunc func(conn *selio.Socket, peer string, recvSize int, log zerolog.Logger) selio.TaskFunc

// acceptLoop is the server task: accept forever, one handler task
// per connection. It only terminates on a fatal accept failure.
func acceptLoop(sock *selio.Socket, handler handlerFunc, recvSize int, log zerolog.Logger) selio.TaskFunc {
	return func(_ context.Context, task *selio.Task) error {
		for {
			conn, peer, err := task.Accept(sock)
			if err != nil {
				return err
			}
			log.Info().Str("peer", peer).Msg("connection accepted")
			task.Spawn(handler(conn, peer, recvSize, log))
		}
	}
}

// echoHandler copies received bytes straight back to the sender, no
// framing.
func echoHandler(conn *selio.Socket, peer string, recvSize int, log zerolog.Logger) selio.TaskFunc {
	return func(_ context.Context, task *selio.Task) error {
		defer conn.Close()
		for {
			data, err := task.Receive(conn, recvSize)
			if err != nil {
				return err
			}
			if len(data) == 0 {
				log.Info().Str("peer", peer).Msg("client disconnected")
				return nil
			}
			if err := task.SendAll(conn, data); err != nil {
				return err
			}
		}
	}
}

// lineHandler reads byte-wise up to a newline and replies with the
// line prefixed by "Get: ".
func lineHandler(conn *selio.Socket, peer string, _ int, log zerolog.Logger) selio.TaskFunc {
	return func(_ context.Context, task *selio.Task) error {
		defer conn.Close()
		for {
			line, err := readLine(task, conn)
			if err != nil {
				return err
			}
			if len(line) == 0 {
				log.Info().Str("peer", peer).Msg("client disconnected")
				return nil
			}
			reply := append([]byte("Get: "), line...)
			if err := task.SendAll(conn, reply); err != nil {
				return err
			}
		}
	}
}

// readLine receives one byte at a time until a newline or until the
// peer closes.
func readLine(task *selio.Task, conn *selio.Socket) ([]byte, error) {
	var line bytes.Buffer
	for {
		c, err := task.Receive(conn, 1)
		if err != nil {
			return nil, err
		}
		if len(c) == 0 {
			return line.Bytes(), nil
		}
		line.Write(c)
		if c[0] == '\n' {
			return line.Bytes(), nil
		}
	}
}
