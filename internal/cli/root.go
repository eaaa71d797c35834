// Package cli implements the terminal chat command, a readline front end for
// the chatclient widget.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/habibullah-1101/habib-portfolio/internal/model"
	"github.com/habibullah-1101/habib-portfolio/pkg/chatclient"
)

var serverURL string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the portfolio assistant from the terminal",
	Long:  "Interactive chat with the portfolio assistant. Streams replies token by token.\n\nCommands during chat: /clear resets the conversation, /quit exits.",
	RunE:  runChat,
}

func init() {
	RootCmd.Flags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Chat server base URL")
}

func runChat(cmd *cobra.Command, args []string) error {
	client := chatclient.New(strings.TrimRight(serverURL, "/") + "/api/chat")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for _, m := range client.Messages() {
		printMessage(m)
	}

	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return err
		}

		text := strings.TrimSpace(input)
		switch text {
		case "":
			continue
		case "/quit", "/q":
			return nil
		case "/clear", "/c":
			client.Reset()
			fmt.Println("conversation cleared")
			continue
		}
		line.AppendHistory(input)

		fmt.Print("assistant> ")
		err = client.Submit(context.Background(), text, func(chunk string) {
			fmt.Print(chunk)
		})
		if err != nil {
			fmt.Printf("(%v)", err)
		}
		fmt.Println()
	}
}

func printMessage(m model.Message) {
	prefix := "assistant> "
	if m.Role == model.RoleUser {
		prefix = "you> "
	}
	fmt.Println(prefix + m.Content)
}
