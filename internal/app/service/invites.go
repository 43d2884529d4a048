package service

import (
	"sync"

	"github.com/jose-valero/guild-warden/internal/domain"
)

// Unknown es el resultado de una atribución imposible o ambigua.
const Unknown = ""

// InviteReconciler mantiene por guild el último conteo de usos de cada código
// y atribuye altas comparando contra él.
type InviteReconciler struct {
	mu        sync.Mutex
	baselines map[string]map[string]int // guild -> code -> uses
}

func NewInviteReconciler() *InviteReconciler {
	return &InviteReconciler{baselines: map[string]map[string]int{}}
}

func toCounts(invites []domain.Invite) map[string]int {
	m := make(map[string]int, len(invites))
	for _, inv := range invites {
		m[inv.Code] = inv.Uses
	}
	return m
}

// PrimeCache fija la línea base completa del guild (arranque / reconexión).
func (r *InviteReconciler) PrimeCache(guildID string, invites []domain.Invite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baselines[guildID] = toCounts(invites)
}

// AttributeJoin devuelve el código cuyo conteo subió exactamente 1, o Unknown
// si no hay candidato o hay más de uno. Con base previa, la base pasa a ser
// refreshed en cualquier caso (también si algún conteo bajó). Sin base previa
// devuelve Unknown con primed=false y no crea ninguna.
func (r *InviteReconciler) AttributeJoin(guildID string, refreshed []domain.Invite, memberID string) (code string, primed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	base, ok := r.baselines[guildID]
	if !ok {
		return Unknown, false
	}
	next := toCounts(refreshed)
	r.baselines[guildID] = next

	var candidates []string
	for c, uses := range next {
		if uses-base[c] == 1 {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) != 1 {
		return Unknown, true
	}
	return candidates[0], true
}

// Observe registra un código nuevo (evento de creación) sin tocar el resto.
func (r *InviteReconciler) Observe(guildID, code string, uses int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if base, ok := r.baselines[guildID]; ok {
		base[code] = uses
	}
}

// Drop olvida un código borrado o vencido.
func (r *InviteReconciler) Drop(guildID, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if base, ok := r.baselines[guildID]; ok {
		delete(base, code)
	}
}

// Forget descarta la base de un guild (el bot salió del guild).
func (r *InviteReconciler) Forget(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.baselines, guildID)
}

// Snapshot copia todas las bases.
func (r *InviteReconciler) Snapshot() map[string]map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]map[string]int, len(r.baselines))
	for g, base := range r.baselines {
		cp := make(map[string]int, len(base))
		for c, n := range base {
			cp[c] = n
		}
		out[g] = cp
	}
	return out
}
