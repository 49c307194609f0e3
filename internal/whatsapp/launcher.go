// Package whatsapp implements the bridge capability interfaces on whatsmeow.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/bridge"
)

// Common errors
var (
	ErrQRTimeout      = errors.New("QR code timeout")
	ErrPairingAborted = errors.New("pairing aborted")
)

// Config holds configuration for the WhatsApp launcher.
type Config struct {
	StorePath      string
	ConnectTimeout time.Duration
	// PrintQR also renders pairing codes to QROut.
	PrintQR bool
	QROut   io.Writer
}

// Launcher creates whatsmeow clients backed by a persistent device store.
type Launcher struct {
	container *sqlstore.Container
	cfg       *Config
	log       *slog.Logger
}

// NewLauncher opens the device store at cfg.StorePath.
func NewLauncher(ctx context.Context, cfg *Config, log *slog.Logger) (*Launcher, error) {
	storeDir := filepath.Dir(cfg.StorePath)
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dbLog := &slogAdapter{log: log.With("component", "whatsmeow-db")}

	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", cfg.StorePath), dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.QROut == nil {
		cfg.QROut = os.Stderr
	}

	return &Launcher{container: container, cfg: cfg, log: log}, nil
}

// Acquire connects a new client, pairing it by QR first when no session is stored.
func (l *Launcher) Acquire(ctx context.Context, hooks bridge.Hooks) (bridge.Handle, error) {
	deviceStore, err := l.container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device store: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, &slogAdapter{log: l.log.With("component", "whatsmeow")})
	h := newHandle(client, l.log)
	client.AddEventHandler(h.handleEvent)

	if client.Store.ID == nil {
		l.log.Info("No session found, QR code required")
		if err := l.pairWithQR(ctx, client, hooks); err != nil {
			client.Disconnect()
			return nil, err
		}
	} else if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := h.waitConnected(ctx, l.cfg.ConnectTimeout); err != nil {
		client.Disconnect()
		return nil, err
	}

	l.log.Info("Connected to WhatsApp", "device", h.DeviceInfo())
	return h, nil
}

// pairWithQR connects and forwards every issued code until pairing finishes.
func (l *Launcher) pairWithQR(ctx context.Context, client *whatsmeow.Client, hooks bridge.Hooks) error {
	// The QR channel must exist before Connect.
	qrChan, err := client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}

	if err := client.Connect(); err != nil {
		return fmt.Errorf("failed to connect for QR: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-qrChan:
			if !ok {
				return ErrPairingAborted
			}
			switch item.Event {
			case whatsmeow.QRChannelEventCode:
				l.showQR(item.Code, hooks)
			case whatsmeow.QRChannelSuccess.Event:
				l.log.Info("Pairing successful!")
				return nil
			case whatsmeow.QRChannelTimeout.Event:
				return ErrQRTimeout
			case whatsmeow.QRChannelEventError:
				return fmt.Errorf("pairing failed: %w", item.Error)
			default:
				return fmt.Errorf("pairing failed: %s", item.Event)
			}
		}
	}
}

func (l *Launcher) showQR(code string, hooks bridge.Hooks) {
	if l.cfg.PrintQR {
		PrintQR(l.cfg.QROut, code)
	}

	image, err := RenderQR(code)
	if err != nil {
		l.log.Error("failed to render QR code", "error", err)
		return
	}
	if hooks.OnQR != nil {
		hooks.OnQR(image)
	}
}

// Close releases the device store.
func (l *Launcher) Close() error {
	return l.container.Close()
}

var _ bridge.Launcher = (*Launcher)(nil)
