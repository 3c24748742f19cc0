package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/poinbot/poinbot/internal/app/catalog"
	"github.com/poinbot/poinbot/internal/app/repo"
	"github.com/poinbot/poinbot/internal/domain"
)

// Handler executes the direct commands: balance query, task listing, menu,
// and the admin-gated mutations on users, tasks, and config. Commands that
// move the sender into another mode (claim, kerjakan, game) and everything
// that talks to the AI backend stay in the session engine.
type Handler struct {
	repo    *repo.Repository
	catalog *catalog.Catalog
	ai      domain.Assistant
	prefix  string
}

// NewHandler creates a command handler.
func NewHandler(r *repo.Repository, c *catalog.Catalog, ai domain.Assistant, prefix string) *Handler {
	return &Handler{repo: r, catalog: c, ai: ai, prefix: prefix}
}

// Execute runs a stateless command on behalf of actor and returns the
// reply text. Errors carry the domain taxonomy; map them with ErrorReply.
func (h *Handler) Execute(ctx context.Context, actor domain.UserRecord, cmd Command) (string, error) {
	switch c := cmd.(type) {
	case Menu:
		return h.menuText(actor), nil

	case Balance:
		return fmt.Sprintf("Your balance: %d points.", actor.Balance), nil

	case ListTasks:
		return h.availableTasksText(actor), nil

	case AdminLogin:
		if actor.Admin {
			return "You are already an admin.", nil
		}
		if c.Password != h.repo.Config().AdminPassword {
			return "Invalid admin password.", nil
		}
		err := h.repo.UpdateUser(actor.ID, func(u *domain.UserRecord) error {
			u.Admin = true
			return nil
		})
		if err != nil {
			return "", err
		}
		return "Admin access granted.", nil

	case ResetAI:
		h.ai.Reset(actor.ID)
		return "Conversation history cleared.", nil

	case ListUsers:
		if !actor.Admin {
			return "", domain.ErrPermission
		}
		return h.userListText(), nil

	case BlockUser:
		if !actor.Admin {
			return "", domain.ErrPermission
		}
		err := h.repo.UpdateUser(c.UserID, func(u *domain.UserRecord) error {
			u.Blocked = true
			return nil
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("User %s blocked.", c.UserID), nil

	case UnblockUser:
		if !actor.Admin {
			return "", domain.ErrPermission
		}
		err := h.repo.UpdateUser(c.UserID, func(u *domain.UserRecord) error {
			u.Blocked = false
			return nil
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("User %s unblocked.", c.UserID), nil

	case DeleteUser:
		if !actor.Admin {
			return "", domain.ErrPermission
		}
		if err := h.repo.DeleteUser(c.UserID); err != nil {
			return "", err
		}
		return fmt.Sprintf("User %s deleted.", c.UserID), nil

	case AddTask:
		if !actor.Admin {
			return "", domain.ErrPermission
		}
		task, err := h.catalog.Add(c.Reward, c.DurationMinutes, c.Description)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Task %d added: %s (%d points, %d min).",
			task.ID, task.Description, task.Reward, task.DurationMinutes), nil

	case ListAllTasks:
		if !actor.Admin {
			return "", domain.ErrPermission
		}
		return h.allTasksText(), nil

	case DeleteTask:
		if !actor.Admin {
			return "", domain.ErrPermission
		}
		if err := h.catalog.Delete(c.TaskID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Task %d deleted.", c.TaskID), nil

	case SetBonus:
		if !actor.Admin {
			return "", domain.ErrPermission
		}
		err := h.repo.UpdateConfig(func(cfg *domain.BotConfig) error {
			if c.Min < 0 || c.Min > c.Max {
				return fmt.Errorf("bonus range %d-%d: %w", c.Min, c.Max, domain.ErrValidation)
			}
			cfg.BonusMin = c.Min
			cfg.BonusMax = c.Max
			return nil
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Daily bonus range set to %d-%d.", c.Min, c.Max), nil

	case Ledger:
		if !actor.Admin {
			return "", domain.ErrPermission
		}
		return h.ledgerText(c.UserID)
	}

	return "", fmt.Errorf("command %T is not a direct command", cmd)
}

// ─── Reply Rendering ────────────────────────────────────────────────────────

// ErrorReply maps a taxonomy error onto the fixed user-facing reply.
func ErrorReply(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return err.Error()
	case errors.Is(err, domain.ErrPermission):
		return "This command is for admins only."
	case errors.Is(err, domain.ErrAlreadyDone):
		return err.Error()
	case errors.Is(err, domain.ErrChallengeMismatch):
		return "Wrong code. The challenge has been consumed; start over when ready."
	case errors.Is(err, domain.ErrChallengeExpired):
		return "The verification challenge expired; no points were credited."
	case errors.Is(err, domain.ErrUpstream):
		return "The assistant is unavailable right now. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}

func (h *Handler) menuText(actor domain.UserRecord) string {
	var b strings.Builder
	p := h.prefix
	b.WriteString("Commands:\n")
	fmt.Fprintf(&b, "%smenu - this overview\n", p)
	fmt.Fprintf(&b, "%ssaldo - your point balance\n", p)
	fmt.Fprintf(&b, "%sklaim - claim the daily bonus\n", p)
	fmt.Fprintf(&b, "%smisi - tasks available today\n", p)
	fmt.Fprintf(&b, "%skerjakan <id> - work on a task\n", p)
	fmt.Fprintf(&b, "%sgame - guess the number (1-100)\n", p)
	fmt.Fprintf(&b, "%sgambar <prompt> - generate an image\n", p)
	fmt.Fprintf(&b, "%svideo <prompt> - generate a video link\n", p)
	fmt.Fprintf(&b, "%sresetai - clear the AI conversation\n", p)
	fmt.Fprintf(&b, "%sadmin <password> - admin login\n", p)
	if actor.Admin {
		b.WriteString("\nAdmin:\n")
		fmt.Fprintf(&b, "%susers, %sblock <id>, %sunblock <id>, %sdelusr <id>\n", p, p, p, p)
		fmt.Fprintf(&b, "%saddmisi <reward> <durationMin> <desc>, %sallmisi, %sdelmisi <id>\n", p, p, p)
		fmt.Fprintf(&b, "%ssetbonus <min> <max>, %sledger <id>\n", p, p)
	}
	b.WriteString("\nAnything else is a question for the assistant.")
	return b.String()
}

func (h *Handler) availableTasksText(actor domain.UserRecord) string {
	var lines []string
	for _, t := range h.catalog.List() {
		if actor.HasCompleted(t.ID) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. %s - %d points, %d min",
			t.ID, t.Description, t.Reward, t.DurationMinutes))
	}
	if len(lines) == 0 {
		return "No tasks available right now. Check back tomorrow."
	}
	return fmt.Sprintf("Tasks available today:\n%s\n\nStart one with %skerjakan <id>.",
		strings.Join(lines, "\n"), h.prefix)
}

func (h *Handler) allTasksText() string {
	tasks := h.catalog.List()
	if len(tasks) == 0 {
		return "The catalog is empty."
	}
	var lines []string
	for _, t := range tasks {
		lines = append(lines, fmt.Sprintf("%d. %s - %d points, %d min",
			t.ID, t.Description, t.Reward, t.DurationMinutes))
	}
	return "All tasks:\n" + strings.Join(lines, "\n")
}

func (h *Handler) ledgerText(userID string) (string, error) {
	if _, ok := h.repo.User(userID); !ok {
		return "", fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	entries, err := h.repo.Ledger(userID, 10)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return fmt.Sprintf("No credits recorded for %s.", userID), nil
	}
	var lines []string
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s %s +%d (balance %d)",
			e.Timestamp.Format(time.DateTime), e.Type, e.Amount, e.Balance))
	}
	return fmt.Sprintf("Last credits for %s:\n%s", userID, strings.Join(lines, "\n")), nil
}

func (h *Handler) userListText() string {
	users := h.repo.Users()
	if len(users) == 0 {
		return "No users yet."
	}
	var lines []string
	for _, u := range users {
		flags := ""
		if u.Admin {
			flags += " [admin]"
		}
		if u.Blocked {
			flags += " [blocked]"
		}
		lines = append(lines, fmt.Sprintf("%s - %d points%s", u.ID, u.Balance, flags))
	}
	return fmt.Sprintf("Users (%d):\n%s", len(users), strings.Join(lines, "\n"))
}
