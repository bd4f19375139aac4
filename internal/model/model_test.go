package model

import (
	"testing"
	"time"
)

func TestShift_Order(t *testing.T) {
	if !(ShiftMorning.Order() < ShiftAfternoon.Order() && ShiftAfternoon.Order() < ShiftNight.Order()) {
		t.Error("シフト順序は朝 → 午後 → 夜であるべき")
	}
	if Shift("madrugada").Order() <= ShiftNight.Order() {
		t.Error("未知のシフトは最後に並ぶべき")
	}
}

func TestShift_Label(t *testing.T) {
	tests := map[Shift]string{
		ShiftMorning:   "Manhã",
		ShiftAfternoon: "Tarde",
		ShiftNight:     "Noite",
		"outro":        "outro",
	}
	for shift, want := range tests {
		if got := shift.Label(); got != want {
			t.Errorf("Shift(%q).Label() = %q, want %q", shift, got, want)
		}
	}
}

func TestRole_HomePath(t *testing.T) {
	tests := map[Role]string{
		RoleOwner:        "proprietario.html",
		RoleManager:      "gerente.html",
		RoleEmployee:     "funcionario.html",
		RoleVeterinarian: "veterinario.html",
		"desconhecido":   "gerente.html",
	}
	for role, want := range tests {
		if got := role.HomePath(); got != want {
			t.Errorf("Role(%q).HomePath() = %q, want %q", role, got, want)
		}
	}
}

func TestDisplayName_FallbackChain(t *testing.T) {
	if got := DisplayName("Maria", "Meta", "joao@example.com", "Usuário"); got != "Maria" {
		t.Errorf("got %q, want Maria", got)
	}
	if got := DisplayName("", "Meta", "joao@example.com", "Usuário"); got != "Meta" {
		t.Errorf("got %q, want Meta", got)
	}
	if got := DisplayName(" ", "", "joao@example.com", "Usuário"); got != "joao" {
		t.Errorf("got %q, want joao", got)
	}
	if got := DisplayName("", "", "", "Usuário"); got != "Usuário" {
		t.Errorf("got %q, want Usuário", got)
	}
}

func TestSessionData_Valid_24HourWindow(t *testing.T) {
	login := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	s := &SessionData{ID: "u1", LoginTime: login, IsAuthenticated: true}

	if !s.Valid(login.Add(23*time.Hour+59*time.Minute), 24*time.Hour) {
		t.Error("23h59m後のセッションは有効であるべき")
	}
	if s.Valid(login.Add(24*time.Hour), 24*time.Hour) {
		t.Error("ちょうど24h後のセッションは無効であるべき")
	}

	s.IsAuthenticated = false
	if s.Valid(login.Add(time.Minute), 24*time.Hour) {
		t.Error("未認証フラグのセッションは無効であるべき")
	}

	var nilSession *SessionData
	if nilSession.Valid(login, 24*time.Hour) {
		t.Error("nilセッションは無効であるべき")
	}
}

func TestAPIError_Error(t *testing.T) {
	err := NewRecordNotFoundError("rec-1")
	want := "[RECORD_NOT_FOUND] Registro não encontrado: rec-1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
