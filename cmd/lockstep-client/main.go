// Command lockstep-client is an interactive terminal client for a Lockstep
// server, useful for driving and observing live sessions during development.
//
// Usage:
//
//	lockstep-client <url> <userId> <role>
//
// Commands once connected:
//
//	/join <sessionId>                  join a session
//	/leave <sessionId>                 leave a session
//	/start <sessionId>                 start driving a session (teacher)
//	/end <sessionId>                   end a session (teacher)
//	/nav <sessionId> <pageType> <url>  push a navigation update (teacher)
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"nhooyr.io/websocket"

	"lockstep/pkg/types"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: lockstep-client <url> <userId> <role>")
		fmt.Println("Example: lockstep-client ws://localhost:8080/ws teacher1 teacher")
		os.Exit(1)
	}
	url, userID, role := os.Args[1], os.Args[2], os.Args[3]

	ctx := context.Background()

	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		log.Fatalf("failed to dial %s: %v", url, err)
	}
	defer c.Close(websocket.StatusNormalClosure, "")

	send := func(env *types.Envelope) {
		data, err := json.Marshal(env)
		if err != nil {
			log.Printf("encode error: %v", err)
			return
		}
		if err := c.Write(ctx, websocket.MessageText, data); err != nil {
			log.Fatalf("write failed: %v", err)
		}
	}

	send(&types.Envelope{
		Type:    types.MessageTypeAuth,
		Payload: types.AuthPayload{UserID: userID, Role: role},
	})
	fmt.Printf("Connected to %s as %s (%s)\n", url, userID, role)

	// Read loop: print every inbound envelope and restore the prompt.
	go func() {
		for {
			_, data, err := c.Read(ctx)
			if err != nil {
				log.Printf("disconnected: %v", err)
				os.Exit(0)
			}

			var env struct {
				Type    string          `json:"type"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := json.Unmarshal(data, &env); err != nil {
				log.Printf("decode error: %v", err)
				continue
			}
			fmt.Printf("\n<- %s %s\n> ", env.Type, string(env.Payload))
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			fmt.Print("> ")
			continue
		}

		switch fields[0] {
		case "/join":
			if len(fields) == 2 {
				send(&types.Envelope{
					Type:    types.MessageTypeJoinSession,
					Payload: types.JoinSessionPayload{SessionID: fields[1], UserID: userID},
				})
			} else {
				fmt.Println("Usage: /join <sessionId>")
			}

		case "/leave":
			if len(fields) == 2 {
				send(&types.Envelope{
					Type:    types.MessageTypeLeaveSession,
					Payload: types.LeaveSessionPayload{SessionID: fields[1], UserID: userID},
				})
			} else {
				fmt.Println("Usage: /leave <sessionId>")
			}

		case "/start":
			if len(fields) == 2 {
				send(&types.Envelope{
					Type:    types.MessageTypeStartSession,
					Payload: types.StartSessionPayload{SessionID: fields[1], TeacherID: userID},
				})
			} else {
				fmt.Println("Usage: /start <sessionId>")
			}

		case "/end":
			if len(fields) == 2 {
				send(&types.Envelope{
					Type:    types.MessageTypeEndSession,
					Payload: types.EndSessionPayload{SessionID: fields[1], TeacherID: userID},
				})
			} else {
				fmt.Println("Usage: /end <sessionId>")
			}

		case "/nav":
			if len(fields) == 4 {
				send(&types.Envelope{
					Type: types.MessageTypeTeacherNavigation,
					Payload: types.TeacherNavigationPayload{
						SessionID: fields[1],
						PageType:  fields[2],
						PageURL:   fields[3],
					},
				})
			} else {
				fmt.Println("Usage: /nav <sessionId> <pageType> <pageUrl>")
			}

		default:
			fmt.Println("Commands: /join /leave /start /end /nav")
		}
		fmt.Print("> ")
	}
}
