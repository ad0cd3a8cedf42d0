package introspect

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/irrecv/irrecv/dfa"
	"github.com/irrecv/irrecv/dot"
	"github.com/irrecv/irrecv/internal/cache"
	"github.com/irrecv/irrecv/kerneldecoder"
	"github.com/irrecv/irrecv/receiver"
	"github.com/irrecv/irrecv/scancode"
)

// ReceiverInfo summarizes one attached receiver for the /receivers
// listing.
type ReceiverInfo struct {
	Name         string                `json:"name"`
	Capabilities receiver.Capabilities `json:"capabilities"`
}

// Server exposes the introspection REST+WebSocket surface.
type Server struct {
	app *fiber.App
	hub *Hub

	receivers map[string]receiver.Receiver
	scancodes scancode.Registry
	decoder   kerneldecoder.Decoder
	cache     *cache.Cache

	currentDFA  *dfa.DFA
	currentName string
}

// Config configures the server's network and auth settings.
type Config struct {
	JWT JWTConfig
}

// New builds a Server. Receivers, the scancode registry, the kernel
// decoder, and the cache are injected by the caller (cmd/irrecvd)
// rather than constructed here, so the surface can be wired against
// mocks in tests.
func New(cfg Config, receivers map[string]receiver.Receiver, scancodes scancode.Registry, decoder kerneldecoder.Decoder, c *cache.Cache) *Server {
	hub := NewHub()
	go hub.Run()

	s := &Server{
		app:       fiber.New(fiber.Config{DisableStartupMessage: true}),
		hub:       hub,
		receivers: receivers,
		scancodes: scancodes,
		decoder:   decoder,
		cache:     c,
	}
	s.routes(cfg)
	return s
}

// Hub returns the WebSocket hub, so a caller can wire
// logger.SetBroadcaster(server.Hub().BroadcastLog) and forward decode
// events with Hub().Broadcast.
func (s *Server) Hub() *Hub { return s.hub }

// SetCurrentDFA records the most recently compiled DFA so GET
// /dot can dump it. Debug UIs typically track one protocol at a time.
func (s *Server) SetCurrentDFA(d *dfa.DFA, name string) {
	s.currentDFA = d
	s.currentName = name
}

// Listen starts the HTTP server. It blocks until the server stops.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes(cfg Config) {
	s.app.Get("/receivers", s.handleListReceivers)
	s.app.Get("/dot", s.handleDot)
	s.app.Get("/decoders", s.handleListDecoders)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		s.hub.HandleWebSocket(c)
	}))

	auth := s.app.Group("", JWTMiddleware(cfg.JWT))
	auth.Post("/decoders/:name/attach", s.handleAttachDecoder)
	auth.Post("/decoders/clear", s.handleClearDecoder)
	auth.Post("/scancodes/clear", s.handleClearScancodes)
}

func (s *Server) handleListReceivers(c *fiber.Ctx) error {
	out := make([]ReceiverInfo, 0, len(s.receivers))
	for name, r := range s.receivers {
		out = append(out, ReceiverInfo{Name: name, Capabilities: r.Capabilities()})
	}
	return c.JSON(out)
}

func (s *Server) handleDot(c *fiber.Ctx) error {
	if s.currentDFA == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no protocol compiled yet"})
	}
	c.Set("Content-Type", "text/vnd.graphviz")
	return c.SendString(dot.Write(s.currentDFA, s.currentName, nil))
}

func (s *Server) handleListDecoders(c *fiber.Ctx) error {
	if s.cache == nil {
		return c.JSON([]struct{}{})
	}
	entries, err := s.cache.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	type decoderInfo struct {
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]decoderInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, decoderInfo{Name: e.Name, CreatedAt: e.CreatedAt})
	}
	return c.JSON(out)
}

func (s *Server) handleAttachDecoder(c *fiber.Ctx) error {
	if s.cache == nil || s.decoder == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "decoder attachment not configured"})
	}
	name := c.Params("name")
	entries, err := s.cache.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	for _, e := range entries {
		if e.Name == name {
			if err := s.decoder.AttachBPF(e.Bytecode); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{"attached": name})
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no cached decoder named " + name})
}

func (s *Server) handleClearDecoder(c *fiber.Ctx) error {
	if s.decoder == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no kernel decoder configured"})
	}
	if err := s.decoder.ClearBPF(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"cleared": true})
}

func (s *Server) handleClearScancodes(c *fiber.Ctx) error {
	if s.scancodes == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no scancode registry configured"})
	}
	if err := s.scancodes.ClearScancodes(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"cleared": true})
}
