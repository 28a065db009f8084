// Package router is the screen state machine behind the UI.
//
// FIVE SCREENS, ONE ACTIVE:
// The app shows exactly one screen at a time. Which one is decided here and
// nowhere else: the view layer asks State() and renders that screen, and user
// actions become Events fed to Fire().
//
//	         GetStarted           ShowRegister
//	Welcome ───────────▶ Login ◀──────────────▶ Register
//	   ▲                 │  │    ShowLogin         │
//	   │        LoginAdmin  LoginUser              │ Registered
//	   │                 ▼  ▼                      ▼
//	   └──── Logout ─ AdminHome  UserHome ◀────────┘
//
// Login and Register also have Back → Welcome.
//
// Anything not in the table is rejected with ErrInvalidTransition and the
// current screen stays put. There is no terminal state.
//
// EXIT HOOKS:
// A screen may hold resources (an in-flight search, a cached report). OnExit
// registers a function that runs whenever the machine leaves that screen, so
// the next screen never inherits them.
package router

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sakif/weatherly/internal/model"
)

type State int

const (
	Welcome State = iota
	Login
	Register
	AdminHome
	UserHome
)

func (s State) String() string {
	switch s {
	case Welcome:
		return "welcome"
	case Login:
		return "login"
	case Register:
		return "register"
	case AdminHome:
		return "admin_home"
	case UserHome:
		return "user_home"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsHome reports whether s is one of the logged-in screens.
func (s State) IsHome() bool {
	return s == AdminHome || s == UserHome
}

type Event int

const (
	GetStarted Event = iota
	ShowRegister
	ShowLogin
	LoginAdmin
	LoginUser
	Registered
	Logout
	Back
)

var eventNames = map[Event]string{
	GetStarted:   "get-started",
	ShowRegister: "show-register",
	ShowLogin:    "show-login",
	LoginAdmin:   "login-admin",
	LoginUser:    "login-user",
	Registered:   "registered",
	Logout:       "logout",
	Back:         "back",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// ParseEvent maps an action name such as "get-started" to its Event.
func ParseEvent(name string) (Event, error) {
	for e, n := range eventNames {
		if n == name {
			return e, nil
		}
	}
	return 0, fmt.Errorf("router: unknown event %q", name)
}

// LoginEvent picks the event for a successful login with the given role.
func LoginEvent(role model.Role) (Event, error) {
	switch role {
	case model.RoleAdmin:
		return LoginAdmin, nil
	case model.RoleUser:
		return LoginUser, nil
	default:
		return 0, fmt.Errorf("router: no login event for role %q", role)
	}
}

// ErrInvalidTransition is returned by Fire for an event the current state
// does not accept.
var ErrInvalidTransition = errors.New("router: invalid transition")

type transition struct {
	from  State
	event Event
}

var transitions = map[transition]State{
	{Welcome, GetStarted}:  Login,
	{Login, ShowRegister}:  Register,
	{Register, ShowLogin}:  Login,
	{Login, LoginAdmin}:    AdminHome,
	{Login, LoginUser}:     UserHome,
	{Register, Registered}: UserHome,
	{AdminHome, Logout}:    Welcome,
	{UserHome, Logout}:     Welcome,
	{Login, Back}:          Welcome,
	{Register, Back}:       Welcome,
}

// Router holds the active screen. Safe for concurrent use.
type Router struct {
	mu     sync.Mutex
	state  State
	onExit map[State][]func()
}

// New returns a router on the Welcome screen.
func New() *Router {
	return &Router{
		state:  Welcome,
		onExit: make(map[State][]func()),
	}
}

func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// OnExit registers fn to run each time the machine leaves state s. Hooks run
// in registration order, under the router's lock, so they must not call back
// into the router.
func (r *Router) OnExit(s State, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExit[s] = append(r.onExit[s], fn)
}

// Can reports whether e is accepted in the current state.
func (r *Router) Can(e Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := transitions[transition{r.state, e}]
	return ok
}

// Fire applies e. On success it runs the exit hooks of the old state and
// returns the new one. On ErrInvalidTransition nothing changes.
func (r *Router) Fire(e Event) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, ok := transitions[transition{r.state, e}]
	if !ok {
		return r.state, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, r.state)
	}

	for _, fn := range r.onExit[r.state] {
		fn()
	}
	r.state = next
	return next, nil
}
