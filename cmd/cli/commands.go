package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"

	"luminousdeep/internal/grpcserver"
	"luminousdeep/internal/notify"
)

func newAuthCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Register, log in and out"}

	var username, email, password string

	login := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp tokenData
			payload := map[string]string{"email": email, "password": password}
			if err := doJSON(cmd.Context(), g.client, http.MethodPost, g.baseURL+"/auth/login", "", payload, &resp); err != nil {
				return err
			}
			if err := saveToken(g.tokenPath, resp.Token); err != nil {
				return err
			}
			fmt.Println("logged in")
			return nil
		},
	}
	login.Flags().StringVar(&email, "email", "", "email address")
	login.Flags().StringVar(&password, "password", "", "password")
	_ = login.MarkFlagRequired("email")
	_ = login.MarkFlagRequired("password")

	register := &cobra.Command{
		Use:   "register",
		Short: "Create an account and store the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp tokenData
			payload := map[string]string{"username": username, "email": email, "password": password}
			if err := doJSON(cmd.Context(), g.client, http.MethodPost, g.baseURL+"/auth/register", "", payload, &resp); err != nil {
				return err
			}
			if err := saveToken(g.tokenPath, resp.Token); err != nil {
				return err
			}
			fmt.Println("registered and logged in")
			return nil
		},
	}
	register.Flags().StringVar(&username, "username", "", "username")
	register.Flags().StringVar(&email, "email", "", "email address")
	register.Flags().StringVar(&password, "password", "", "password")
	_ = register.MarkFlagRequired("username")
	_ = register.MarkFlagRequired("email")
	_ = register.MarkFlagRequired("password")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the token and remove it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token, _ := readToken(g.tokenPath); token != "" {
				// best effort: the local token is removed either way
				_ = doJSON(cmd.Context(), g.client, http.MethodPost, g.baseURL+"/auth/logout", token, nil, nil)
			}
			if err := clearToken(g.tokenPath); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}

	cmd.AddCommand(login, register, logout)
	return cmd
}

// getJSON prints the response of an optionally authenticated GET.
func getJSON(ctx context.Context, g *globals, path string, mustAuth bool) error {
	token, err := readToken(g.tokenPath)
	if err != nil {
		return err
	}
	if mustAuth && token == "" {
		return errors.New("not logged in, run: luminous auth login")
	}
	var out any
	if err := doJSON(ctx, g.client, http.MethodGet, g.baseURL+path, token, nil, &out); err != nil {
		return err
	}
	return printJSON(out)
}

func newLibraryCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "library",
		Short: "Show myths, Season Zero, reflections and where to continue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return getJSON(cmd.Context(), g, "/library", false)
		},
	}
}

func newSeriesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "series", Short: "Browse published series"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List published series",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return getJSON(cmd.Context(), g, "/series", false)
			},
		},
		&cobra.Command{
			Use:   "show <slug>",
			Short: "Show a series and its episodes in reading order",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return getJSON(cmd.Context(), g, "/series/"+url.PathEscape(args[0]), false)
			},
		},
	)
	return cmd
}

func newSignalCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "signal <slug>",
		Short: "Read one signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(cmd.Context(), g, "/signals/"+url.PathEscape(args[0]), false)
		},
	}
}

func newProgressCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "progress", Short: "Record reading progress"}

	var (
		percent   float64
		completed bool
	)
	save := &cobra.Command{
		Use:   "save <signal-id>",
		Short: "Save progress for a signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := requireToken(g.tokenPath)
			if err != nil {
				return err
			}
			payload := map[string]any{"signal_id": args[0], "progress": percent, "is_completed": completed}
			if err := doJSON(cmd.Context(), g.client, http.MethodPost, g.baseURL+"/progress", token, payload, nil); err != nil {
				return err
			}
			fmt.Println("saved")
			return nil
		},
	}
	save.Flags().Float64Var(&percent, "percent", 0, "progress 0-100")
	save.Flags().BoolVar(&completed, "completed", false, "mark completed")

	complete := &cobra.Command{
		Use:   "complete <signal-id>",
		Short: "Mark a signal as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := requireToken(g.tokenPath)
			if err != nil {
				return err
			}
			endpoint := g.baseURL + "/progress/" + url.PathEscape(args[0]) + "/complete"
			if err := doJSON(cmd.Context(), g.client, http.MethodPost, endpoint, token, nil, nil); err != nil {
				return err
			}
			fmt.Println("completed")
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <signal-id>",
		Short: "Show stored progress for a signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(cmd.Context(), g, "/progress/"+url.PathEscape(args[0]), true)
		},
	}

	cmd.AddCommand(save, complete, get)
	return cmd
}

func newCanonCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "canon",
		Short: "List locked world canon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return getJSON(cmd.Context(), g, "/canon", false)
		},
	}
}

func newWorldCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "world",
		Short: "Show the world map (admin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return getJSON(cmd.Context(), g, "/studio/world", true)
		},
	}
}

func newSyncCmd(g *globals) *cobra.Command {
	var (
		addr   string
		useWS  bool
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Stream live events from the TCP hub or the WebSocket endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if useWS {
				endpoint, err := websocketURL(g.baseURL, "/ws")
				if err != nil {
					return err
				}
				// with a token the socket also carries this reader's progress events
				token, err := readToken(g.tokenPath)
				if err != nil {
					return err
				}
				return runWebSocket(endpoint, token)
			}
			for {
				if err := runSyncTCP(addr, pretty); err != nil {
					fmt.Fprintf(os.Stderr, "sync disconnected: %v\n", err)
				}
				select {
				case <-cmd.Context().Done():
					return nil
				case <-time.After(time.Second):
				}
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7070", "TCP sync server address")
	cmd.Flags().BoolVar(&useWS, "ws", false, "use the WebSocket endpoint instead of TCP")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "pretty print JSON events")
	return cmd
}

func runSyncTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()
		var obj map[string]any
		if !pretty || json.Unmarshal(line, &obj) != nil {
			fmt.Println(string(line))
			continue
		}
		_ = printJSON(obj)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL, token string) error {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func newNotifyCmd() *cobra.Command {
	var addr, userID string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Register for UDP new-signal pings and print them",
		RunE: func(_ *cobra.Command, _ []string) error {
			server, err := net.ResolveUDPAddr("udp", addr)
			if err != nil {
				return err
			}
			conn, err := net.ListenUDP("udp", nil)
			if err != nil {
				return err
			}
			defer conn.Close()

			reg, _ := json.Marshal(notify.RegisterMessage{Type: notify.RegisterMessageType, UserID: userID})
			if _, err := conn.WriteToUDP(reg, server); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "registered with %s as %s\n", addr, userID)

			buf := make([]byte, 2048)
			for {
				n, _, err := conn.ReadFromUDP(buf)
				if err != nil {
					return err
				}
				var msg notify.NewSignalMessage
				if err := json.Unmarshal(buf[:n], &msg); err != nil || msg.Type != notify.NewSignalMessageType {
					continue
				}
				fmt.Printf("new signal: %s (S%02dE%02d) %s\n", msg.Slug, msg.Season, msg.Episode, msg.Title)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9091", "UDP notify server address")
	cmd.Flags().StringVar(&userID, "user", "cli", "id to register under")
	return cmd
}

func newRPCCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "rpc <method> [json-request]",
		Short: "Call a method of the gRPC Library service",
		Long: "Methods: " + grpcserver.MethodGetLibraryState + ", " + grpcserver.MethodGetSeriesBySlug + ", " +
			grpcserver.MethodGetSignal + ", " + grpcserver.MethodGetWorldMap + ", " +
			grpcserver.MethodSaveProgress + ", " + grpcserver.MethodCompleteTransmission,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &req); err != nil {
					return fmt.Errorf("request json: %w", err)
				}
			}
			token, err := readToken(g.tokenPath)
			if err != nil {
				return err
			}

			conn, err := grpc.NewClient(g.grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			out, err := grpcserver.NewClient(conn, token).Call(ctx, args[0], req)
			if err != nil {
				return err
			}
			b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		},
	}
}
