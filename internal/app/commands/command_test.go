package commands

import (
	"errors"
	"reflect"
	"testing"

	"github.com/poinbot/poinbot/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"/menu", Menu{}},
		{"/saldo", Balance{}},
		{"/klaim", Claim{}},
		{"/misi", ListTasks{}},
		{"/kerjakan 3", CompleteTask{TaskID: 3}},
		{"/game", StartGame{}},
		{"/admin hunter2", AdminLogin{Password: "hunter2"}},
		{"/resetai", ResetAI{}},
		{"/gambar a red bird", Image{Prompt: "a red bird"}},
		{"/video sunset timelapse", Video{Prompt: "sunset timelapse"}},
		{"/users", ListUsers{}},
		{"/block 628111", BlockUser{UserID: "628111"}},
		{"/unblock 628111", UnblockUser{UserID: "628111"}},
		{"/delusr 628111", DeleteUser{UserID: "628111"}},
		{"/addmisi 150 5 subscribe to the channel", AddTask{Reward: 150, DurationMinutes: 5, Description: "subscribe to the channel"}},
		{"/allmisi", ListAllTasks{}},
		{"/delmisi 2", DeleteTask{TaskID: 2}},
		{"/setbonus 10 50", SetBonus{Min: 10, Max: 50}},
		{"/ledger 628111", Ledger{UserID: "628111"}},
		{"hello there", Freeform{Text: "hello there"}},
		{"  /MENU  ", Menu{}}, // keyword is lowercased, surrounding space trimmed
		{"/frobnicate", Unknown{Keyword: "frobnicate"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in, "/")
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseValidationErrors(t *testing.T) {
	bad := []string{
		"/kerjakan",
		"/kerjakan abc",
		"/admin",
		"/gambar",
		"/block",
		"/addmisi 150",
		"/addmisi abc 5 desc",
		"/addmisi 150 x desc",
		"/delmisi x",
		"/setbonus 10",
		"/setbonus a b",
		"/setbonus 50 10",    // min > max
		"/setbonus -100 -50", // negative range would credit negative amounts
		"/ledger",
	}
	for _, in := range bad {
		t.Run(in, func(t *testing.T) {
			if _, err := Parse(in, "/"); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Parse(%q) err = %v, want ErrValidation", in, err)
			}
		})
	}
}

func TestParseCustomPrefix(t *testing.T) {
	got, err := Parse("!saldo", "!")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := got.(Balance); !ok {
		t.Errorf("got %#v, want Balance", got)
	}

	// A slash command under the ! prefix is just chat.
	got, _ = Parse("/saldo", "!")
	if _, ok := got.(Freeform); !ok {
		t.Errorf("got %#v, want Freeform", got)
	}
}
