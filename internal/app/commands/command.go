// Package commands classifies inbound chat text and executes the direct,
// stateless (with respect to the session state machine) operations.
// Parsing produces a closed set of tagged variants; dispatch happens only
// when the sender is idle, which the session engine enforces before
// calling in here.
package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/poinbot/poinbot/internal/domain"
)

// Command is a parsed chat command. The set is closed: every variant
// carries its already-validated argument payload.
type Command interface{ isCommand() }

type (
	// Menu asks for the command overview.
	Menu struct{}
	// Balance asks for the sender's point balance.
	Balance struct{}
	// Claim starts the daily-bonus verification challenge.
	Claim struct{}
	// ListTasks lists tasks still available to the sender today.
	ListTasks struct{}
	// CompleteTask starts a timed verification challenge for a task.
	CompleteTask struct{ TaskID int64 }
	// StartGame enters the number guessing game.
	StartGame struct{}
	// AdminLogin grants the admin flag on password match.
	AdminLogin struct{ Password string }
	// ResetAI clears the sender's AI conversation history.
	ResetAI struct{}
	// Image requests a generated image.
	Image struct{ Prompt string }
	// Video requests a generated video link.
	Video struct{ Prompt string }
	// Freeform is non-prefixed text forwarded to the AI conversation.
	Freeform struct{ Text string }
	// Unknown is a prefixed keyword nobody recognizes.
	Unknown struct{ Keyword string }

	// Admin-gated commands.
	ListUsers    struct{}
	BlockUser    struct{ UserID string }
	UnblockUser  struct{ UserID string }
	DeleteUser   struct{ UserID string }
	AddTask      struct {
		Reward          int64
		DurationMinutes int
		Description     string
	}
	ListAllTasks struct{}
	DeleteTask   struct{ TaskID int64 }
	SetBonus     struct{ Min, Max int64 }
	Ledger       struct{ UserID string }
)

func (Menu) isCommand()         {}
func (Balance) isCommand()      {}
func (Claim) isCommand()        {}
func (ListTasks) isCommand()    {}
func (CompleteTask) isCommand() {}
func (StartGame) isCommand()    {}
func (AdminLogin) isCommand()   {}
func (ResetAI) isCommand()      {}
func (Image) isCommand()        {}
func (Video) isCommand()        {}
func (Freeform) isCommand()     {}
func (Unknown) isCommand()      {}
func (ListUsers) isCommand()    {}
func (BlockUser) isCommand()    {}
func (UnblockUser) isCommand()  {}
func (DeleteUser) isCommand()   {}
func (AddTask) isCommand()      {}
func (ListAllTasks) isCommand() {}
func (DeleteTask) isCommand()   {}
func (SetBonus) isCommand()     {}
func (Ledger) isCommand()       {}

// Parse classifies a trimmed inbound message. Text without the prefix is
// Freeform; a prefixed keyword with malformed arguments fails with a
// usage hint wrapping domain.ErrValidation.
func Parse(text, prefix string) (Command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, prefix) {
		return Freeform{Text: text}, nil
	}

	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return Unknown{Keyword: ""}, nil
	}
	keyword := strings.ToLower(fields[0])
	args := fields[1:]

	usage := func(format string) error {
		return fmt.Errorf("usage: %s%s: %w", prefix, format, domain.ErrValidation)
	}

	switch keyword {
	case "menu":
		return Menu{}, nil
	case "saldo":
		return Balance{}, nil
	case "klaim":
		return Claim{}, nil
	case "misi":
		return ListTasks{}, nil
	case "kerjakan":
		if len(args) != 1 {
			return nil, usage("kerjakan <id>")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, usage("kerjakan <id>")
		}
		return CompleteTask{TaskID: id}, nil
	case "game":
		return StartGame{}, nil
	case "admin":
		if len(args) != 1 {
			return nil, usage("admin <password>")
		}
		return AdminLogin{Password: args[0]}, nil
	case "resetai":
		return ResetAI{}, nil
	case "gambar":
		if len(args) == 0 {
			return nil, usage("gambar <prompt>")
		}
		return Image{Prompt: strings.Join(args, " ")}, nil
	case "video":
		if len(args) == 0 {
			return nil, usage("video <prompt>")
		}
		return Video{Prompt: strings.Join(args, " ")}, nil

	case "users":
		return ListUsers{}, nil
	case "block":
		if len(args) != 1 {
			return nil, usage("block <userId>")
		}
		return BlockUser{UserID: args[0]}, nil
	case "unblock":
		if len(args) != 1 {
			return nil, usage("unblock <userId>")
		}
		return UnblockUser{UserID: args[0]}, nil
	case "delusr":
		if len(args) != 1 {
			return nil, usage("delusr <userId>")
		}
		return DeleteUser{UserID: args[0]}, nil
	case "addmisi":
		if len(args) < 3 {
			return nil, usage("addmisi <reward> <durationMin> <description>")
		}
		reward, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, usage("addmisi <reward> <durationMin> <description>")
		}
		duration, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, usage("addmisi <reward> <durationMin> <description>")
		}
		return AddTask{
			Reward:          reward,
			DurationMinutes: duration,
			Description:     strings.Join(args[2:], " "),
		}, nil
	case "allmisi":
		return ListAllTasks{}, nil
	case "delmisi":
		if len(args) != 1 {
			return nil, usage("delmisi <id>")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, usage("delmisi <id>")
		}
		return DeleteTask{TaskID: id}, nil
	case "setbonus":
		if len(args) != 2 {
			return nil, usage("setbonus <min> <max>")
		}
		min, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, usage("setbonus <min> <max>")
		}
		max, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, usage("setbonus <min> <max>")
		}
		if min < 0 {
			return nil, fmt.Errorf("min %d is negative: %w", min, domain.ErrValidation)
		}
		if min > max {
			return nil, fmt.Errorf("min %d exceeds max %d: %w", min, max, domain.ErrValidation)
		}
		return SetBonus{Min: min, Max: max}, nil
	case "ledger":
		if len(args) != 1 {
			return nil, usage("ledger <userId>")
		}
		return Ledger{UserID: args[0]}, nil
	}

	return Unknown{Keyword: keyword}, nil
}

// KindName names a command variant for metrics labels.
func KindName(cmd Command) string {
	switch cmd.(type) {
	case Menu:
		return "menu"
	case Balance:
		return "saldo"
	case Claim:
		return "klaim"
	case ListTasks:
		return "misi"
	case CompleteTask:
		return "kerjakan"
	case StartGame:
		return "game"
	case AdminLogin:
		return "admin"
	case ResetAI:
		return "resetai"
	case Image:
		return "gambar"
	case Video:
		return "video"
	case Freeform:
		return "freeform"
	case ListUsers:
		return "users"
	case BlockUser:
		return "block"
	case UnblockUser:
		return "unblock"
	case DeleteUser:
		return "delusr"
	case AddTask:
		return "addmisi"
	case ListAllTasks:
		return "allmisi"
	case DeleteTask:
		return "delmisi"
	case SetBonus:
		return "setbonus"
	case Ledger:
		return "ledger"
	default:
		return "unknown"
	}
}
