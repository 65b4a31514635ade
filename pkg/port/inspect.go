// The inspection port exposes a read-only view of the cache engine over the Redis protocol, so operators can
// poke at a running daemon with any Redis client. Mutating commands are deliberately absent: the engine's
// consumers are its only writers, and this surface never becomes a general-purpose key-value store.

package port

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/redcon"
	"gopkg.in/yaml.v3"

	"github.com/pagelight/doccache/pkg/cache"
	"github.com/pagelight/doccache/pkg/utils"
)

var address = flag.String("inspect_address", ":6380",
	"The ip:port the read-only inspection server listens on for the Redis protocol.")

// inspectCommand represents a parsed inspection command with its arguments.
type inspectCommand struct {
	command string
	args    []string
}

// inspectOutput conforms to a real Redis server output on the supported commands.
type inspectOutput struct {
	closeConnection bool     // Closes the connection if true.
	writeNil        bool     // Writes a nil value if true.
	err             *string  // Error to return if set.
	writeInt        *int     // Writes an integer value if set.
	writeArray      []string // Writes a bulk-string array if set.
	writeString     string   // Writes a string value otherwise.
}

func closeInspectConnection(msg string) inspectOutput {
	return inspectOutput{writeString: msg, closeConnection: true}
}

func writeInspectInt(i int) inspectOutput {
	return inspectOutput{writeInt: &i}
}

func writeInspectArray(values []string) inspectOutput {
	if values == nil {
		values = []string{}
	}
	return inspectOutput{writeArray: values}
}

func writeInspectString(s string) inspectOutput {
	return inspectOutput{writeString: s}
}

func writeInspectError(err error) inspectOutput {
	msg := "ERR " + err.Error()
	return inspectOutput{err: &msg}
}

// inspectHandler answers inspection commands against a cache coordinator.
type inspectHandler struct {
	coordinator *cache.Coordinator
}

func newInspectHandler(coordinator *cache.Coordinator) (*inspectHandler, error) {
	if coordinator == nil {
		return nil, errors.New("expected a non-nil coordinator")
	}
	return &inspectHandler{coordinator: coordinator}, nil
}

func (h *inspectHandler) handle(cmd inspectCommand) inspectOutput {
	switch strings.ToUpper(cmd.command) {
	case "PING":
		return writeInspectString("PONG")
	case "QUIT":
		return closeInspectConnection("OK")
	case "INFO":
		return writeInspectString(h.describeEngine())
	case "KEYS":
		return writeInspectArray(h.coordinator.Keys())
	case "DBSIZE":
		return writeInspectInt(h.coordinator.EntryCount())
	case "MEMORY":
		limit := h.coordinator.GetGlobalConfig().TotalMemoryLimitBytes
		return writeInspectString(fmt.Sprintf("usage=%d limit=%d ratio=%.4f",
			h.coordinator.TotalMemoryUsage(), limit, h.coordinator.MemoryUsageRatio()))
	case "STATS":
		if len(cmd.args) == 0 {
			return writeInspectString(h.describeAllStats())
		}
		typ, err := cache.ParseType(cmd.args[0])
		if err != nil {
			return writeInspectError(err)
		}
		return writeInspectString(describeStats(typ, h.coordinator.GetStats(typ)))
	case "RECENT":
		if len(cmd.args) != 1 {
			return writeInspectError(errors.New("wrong number of arguments for 'RECENT' command"))
		}
		typ, err := cache.ParseType(cmd.args[0])
		if err != nil {
			return writeInspectError(err)
		}
		return writeInspectArray(h.coordinator.RecentAccesses(typ))
	case "CONFIG":
		if len(cmd.args) != 1 || strings.ToUpper(cmd.args[0]) != "GET" {
			return writeInspectError(errors.New("only 'CONFIG GET' is supported"))
		}
		flat, err := yaml.Marshal(h.coordinator.GetGlobalConfig())
		if err != nil {
			return writeInspectError(err)
		}
		return writeInspectString(string(flat))
	default:
		return writeInspectError(fmt.Errorf("unknown command '%s'", cmd.command))
	}
}

// describeEngine renders the INFO payload: build info plus the global cache figures.
func (h *inspectHandler) describeEngine() string {
	var b strings.Builder
	fmt.Fprintf(&b, "version:%s\n", utils.Version)
	fmt.Fprintf(&b, "commit:%s\n", utils.Commit)
	fmt.Fprintf(&b, "uptime_seconds:%d\n", int64(time.Since(utils.StartTime).Seconds()))
	fmt.Fprintf(&b, "entries:%d\n", h.coordinator.EntryCount())
	fmt.Fprintf(&b, "memory_usage_bytes:%d\n", h.coordinator.TotalMemoryUsage())
	fmt.Fprintf(&b, "memory_usage_ratio:%.4f\n", h.coordinator.MemoryUsageRatio())
	fmt.Fprintf(&b, "global_hit_ratio:%.4f\n", h.coordinator.GlobalHitRatio())
	return b.String()
}

// describeAllStats renders one line per type with recorded activity.
func (h *inspectHandler) describeAllStats() string {
	all := h.coordinator.GetAllStats()
	var b strings.Builder
	for _, typ := range cache.AllTypes() {
		stats, active := all[typ]
		if !active {
			continue
		}
		b.WriteString(describeStats(typ, stats))
		b.WriteString("\n")
	}
	return b.String()
}

func describeStats(typ cache.Type, stats cache.Stats) string {
	return fmt.Sprintf("type=%s entries=%d memory_bytes=%d hits=%d misses=%d hit_ratio=%.4f",
		typ.String(), stats.EntryCount, stats.MemoryUsage, stats.Hits, stats.Misses, stats.HitRatio)
}

// RunInspectionServer serves the read-only inspection protocol for the given coordinator until the context is
// cancelled.
func RunInspectionServer(ctx context.Context, coordinator *cache.Coordinator) error {
	if *address == "" {
		return errors.New("expected a non-empty --inspect_address flag")
	}

	handler, err := newInspectHandler(coordinator)
	if err != nil {
		return fmt.Errorf("failed to create an inspection handler: %w", err)
	}

	server := redcon.NewServerNetwork("tcp" /*net*/, *address,
		/*handler*/ func(conn redcon.Conn, cmd redcon.Command) {
			// Convert redcon.Command to inspectCommand.
			command := inspectCommand{command: string(cmd.Args[0]), args: make([]string, len(cmd.Args)-1)}
			for i := 1; i < len(cmd.Args); i++ {
				command.args[i-1] = string(cmd.Args[i])
			}
			output := handler.handle(command)
			switch {
			case output.closeConnection:
				conn.WriteString(output.writeString)
				if err := conn.Close(); err != nil {
					slog.Error("Failed to close an inspection connection.", "error", err)
				}
			case output.err != nil:
				conn.WriteError(*output.err)
			case output.writeNil:
				conn.WriteNull()
			case output.writeInt != nil:
				conn.WriteInt(*output.writeInt)
			case output.writeArray != nil:
				conn.WriteArray(len(output.writeArray))
				for _, value := range output.writeArray {
					conn.WriteBulkString(value)
				}
			default:
				conn.WriteString(output.writeString)
			}
		},
		/*accept*/ func(conn redcon.Conn) bool {
			return true // Accept all connections.
		},
		/*close*/ func(conn redcon.Conn, err error) {},
	)

	serverErrSignal := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			serverErrSignal <- err
		}
		close(serverErrSignal)
	}()

	select {
	case <-ctx.Done():
		if err := server.Close(); err != nil {
			return fmt.Errorf("failed to close the inspection server: %w", err)
		}
	case err := <-serverErrSignal:
		return fmt.Errorf("inspection server stopped unexpectedly: %w", err)
	}

	return nil // Exited with no errors.
}
