// Package ipc carries agent messages from the CLI to a running agent as
// JSON-RPC over a unix socket.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/julianstephens/eyecare/internal/constants"
	apperrors "github.com/julianstephens/eyecare/internal/errors"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/models"
)

const serviceName = "Agent"

// Handler answers agent messages.
type Handler interface {
	Handle(ctx context.Context, msg models.Message) models.Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg models.Message) models.Response

func (f HandlerFunc) Handle(ctx context.Context, msg models.Message) models.Response {
	return f(ctx, msg)
}

type empty struct{}

type pingResp struct {
	Version string
	PID     int
}

type rpcHandler struct {
	ctx context.Context
	h   Handler
}

func (s *rpcHandler) Send(msg models.Message, resp *models.Response) error {
	ctx, cancel := context.WithTimeout(s.ctx, constants.IPCCallTimeout)
	defer cancel()
	*resp = s.h.Handle(ctx, msg)
	return nil
}

func (s *rpcHandler) Ping(_ empty, resp *pingResp) error {
	resp.Version = constants.Version
	resp.PID = os.Getpid()
	return nil
}

// Serve listens on socketPath until ctx is cancelled. A stale socket file
// left by a crashed agent is replaced.
func Serve(ctx context.Context, socketPath string, handler Handler) error {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o700); err != nil {
		return fmt.Errorf("create ipc dir: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale ipc socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen ipc socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod ipc socket: %w", err)
	}
	defer os.Remove(socketPath)

	rpcSrv := rpc.NewServer()
	if err := rpcSrv.RegisterName(serviceName, &rpcHandler{ctx: ctx, h: handler}); err != nil {
		_ = ln.Close()
		return fmt.Errorf("register ipc handler: %w", err)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		conns = make(map[net.Conn]struct{})
	)
	defer func() {
		mu.Lock()
		for c := range conns {
			_ = c.Close()
		}
		mu.Unlock()
		wg.Wait()
	}()

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
	}()
	defer close(stop)

	logger.Debug("IPC listening", "socket", socketPath)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}

		mu.Lock()
		conns[conn] = struct{}{}
		mu.Unlock()
		wg.Add(1)
		go func() {
			defer wg.Done()
			rpcSrv.ServeCodec(jsonrpc.NewServerCodec(conn))
			mu.Lock()
			delete(conns, conn)
			mu.Unlock()
		}()
	}
}

// Send delivers msg to the agent listening on socketPath. An unreachable
// agent yields an error wrapping errors.ErrNotRunning.
func Send(ctx context.Context, socketPath string, msg models.Message) (models.Response, error) {
	client, err := dialClient(ctx, socketPath)
	if err != nil {
		return models.Response{}, err
	}
	defer client.Close()

	var resp models.Response
	if err := client.Call(serviceName+".Send", msg, &resp); err != nil {
		return models.Response{}, fmt.Errorf("ipc call failed: %w", err)
	}
	return resp, nil
}

// Ping checks that an agent is listening and returns its version and pid.
func Ping(ctx context.Context, socketPath string) (string, int, error) {
	client, err := dialClient(ctx, socketPath)
	if err != nil {
		return "", 0, err
	}
	defer client.Close()

	var resp pingResp
	if err := client.Call(serviceName+".Ping", empty{}, &resp); err != nil {
		return "", 0, fmt.Errorf("ipc call failed: %w", err)
	}
	return resp.Version, resp.PID, nil
}

func dialClient(ctx context.Context, socketPath string) (*rpc.Client, error) {
	d := net.Dialer{Timeout: constants.IPCDialTimeout}
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w (socket %s): %v", apperrors.ErrNotRunning, socketPath, err)
	}
	_ = conn.SetDeadline(time.Now().Add(constants.IPCCallTimeout + time.Second))
	return rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn)), nil
}
