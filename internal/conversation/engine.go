// Package conversation: конечный автомат диалога: принимает текст пользователя,
// проверяет его, накапливает черновик в сессии и на последнем шаге пишет в склад.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Spok95/inventory-bot/internal/dialog"
	"github.com/Spok95/inventory-bot/internal/domain/inventory"
	"github.com/Spok95/inventory-bot/internal/infra/metrics"
)

// Inventory хранилище, которым пользуется диалог.
type Inventory interface {
	CreateProduct(ctx context.Context, p inventory.NewProduct) (*inventory.Product, error)
	FindProductByBarcode(ctx context.Context, barcode string) (*inventory.Product, error)
	RecordDamage(ctx context.Context, d inventory.NewDamage) (*inventory.DamageReport, error)
	ListProducts(ctx context.Context) ([]inventory.Product, error)
	ListDamageReports(ctx context.Context) ([]inventory.DamageReport, error)
	ExportSnapshot(ctx context.Context) (*inventory.Snapshot, error)
}

var (
	_ Inventory = (*inventory.Repo)(nil)
	_ Inventory = (*inventory.MemoryStore)(nil)
)

type Input struct {
	SessionID int64 // чат
	UserID    int64 // автор, пишется в owner_id
	Text      string
}

type Document struct {
	Name    string
	Data    []byte
	Caption string
}

// Message исходящее сообщение. Keyboard: варианты ответа для следующего шага;
// nil означает «клавиатуру не менять».
type Message struct {
	Text     string
	Keyboard [][]string
	Document *Document
}

type Reply struct {
	Messages []Message
	State    dialog.State
}

type Engine struct {
	store    Inventory
	sessions *dialog.Store
	log      *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithLocation зона, в которой считаются «сегодня» и даты отчётов.
func WithLocation(loc *time.Location) Option { return func(e *Engine) { e.loc = loc } }

func New(store Inventory, sessions *dialog.Store, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		sessions: sessions,
		log:      log,
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// turn один входящий текст и накопленные ответы на него.
type turn struct {
	ctx  context.Context
	in   Input
	text string
	sess *dialog.Session
	msgs []Message
}

func (t *turn) say(text string, kb [][]string) {
	t.msgs = append(t.msgs, Message{Text: text, Keyboard: kb})
}

func (e *Engine) today() time.Time { return inventory.DateOf(e.now().In(e.loc)) }

// Handle обрабатывает один ввод. Вызовы для одной сессии выполняются строго по очереди.
func (e *Engine) Handle(ctx context.Context, in Input) Reply {
	sess, release := e.sessions.Acquire(in.SessionID)
	defer release()

	t := &turn{ctx: ctx, in: in, text: strings.TrimSpace(in.Text), sess: sess}
	metrics.Inputs.WithLabelValues(string(sess.State)).Inc()
	e.log.Debug("dialog input",
		"chat_id", in.SessionID,
		"state", sess.State,
		"step", sess.State.Step(),
		"fields", sess.Fields(),
	)

	switch {
	case isHome(t.text):
		e.mainMenu(t)
	case isBack(t.text):
		e.back(t)
	default:
		e.dispatch(t)
	}
	return Reply{Messages: t.msgs, State: sess.State}
}

// Start /start: сброс и главное меню.
func (e *Engine) Start(ctx context.Context, in Input) Reply {
	return e.terminal(ctx, in, "")
}

// Cancel /cancel: прервать текущий сценарий.
func (e *Engine) Cancel(ctx context.Context, in Input) Reply {
	return e.terminal(ctx, in, "Operation cancelled")
}

// Abort сбрасывает сессию после непредвиденной ошибки транспорта.
func (e *Engine) Abort(ctx context.Context, in Input) Reply {
	return e.terminal(ctx, in, "❌ An unexpected error occurred, please try again")
}

func (e *Engine) terminal(ctx context.Context, in Input, notice string) Reply {
	sess, release := e.sessions.Acquire(in.SessionID)
	defer release()

	t := &turn{ctx: ctx, in: in, sess: sess}
	if notice != "" {
		t.say(notice, nil)
	}
	e.mainMenu(t)
	return Reply{Messages: t.msgs, State: sess.State}
}

func (e *Engine) dispatch(t *turn) {
	switch t.sess.State {
	case dialog.StateNewBarcode:
		e.onNewBarcode(t)
	case dialog.StateNewExpiry:
		e.onExpiry(t)
	case dialog.StateNewQty:
		e.onNewQuantity(t)
	case dialog.StateNewName:
		e.onProductName(t)
	case dialog.StateDmgBarcode:
		e.onDamagedBarcode(t)
	case dialog.StateDmgName:
		e.onDamagedName(t)
	case dialog.StateDmgQty:
		e.onDamagedQuantity(t)
	case dialog.StateDmgReason:
		e.onDamageReason(t)
	default:
		e.onMainMenu(t)
	}
}

func (e *Engine) onMainMenu(t *turn) {
	switch t.text {
	case BtnAddItem:
		t.sess.BeginNewProduct()
		e.askNewBarcode(t)
	case BtnAddDamaged:
		t.sess.BeginDamaged()
		e.askDamagedBarcode(t)
	case BtnListItems:
		e.listProducts(t)
	case BtnListDamaged:
		e.listDamaged(t)
	case BtnExport:
		e.export(t)
	default:
		e.mainMenu(t)
	}
}

// mainMenu сбрасывает сессию и показывает главное меню.
func (e *Engine) mainMenu(t *turn) {
	t.sess.Reset()
	t.say("🏪 Welcome to the inventory management system\n\nChoose an action:", mainMenuKeyboard())
}

// back переход на предыдущий шаг. Уже введённые поля сохраняются,
// кроме результата поиска штрихкода при возврате к его вводу.
func (e *Engine) back(t *turn) {
	s := t.sess
	switch s.State {
	case dialog.StateNewExpiry:
		e.askNewBarcode(t)
	case dialog.StateNewQty:
		e.askExpiry(t)
	case dialog.StateNewName:
		e.askNewQuantity(t)
	case dialog.StateDmgName:
		s.BackToDamagedBarcode()
		e.askDamagedBarcode(t)
	case dialog.StateDmgQty:
		if s.Damaged != nil && !s.Damaged.Registered {
			e.askDamagedName(t)
			return
		}
		s.BackToDamagedBarcode()
		e.askDamagedBarcode(t)
	case dialog.StateDmgReason:
		e.askDamagedQuantity(t)
	default:
		// главное меню и ввод штрихкода
		e.mainMenu(t)
	}
}

// reject показывает ошибку ввода; состояние и черновик не меняются.
func (e *Engine) reject(t *turn, err error) {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		e.fail(t, "validate", err)
		return
	}
	metrics.Rejections.WithLabelValues(ve.Field).Inc()
	t.say(ve.Msg, navKeyboard())
}

// fail ошибка хранилища: пользователю общий текст, сессия в главное меню.
func (e *Engine) fail(t *turn, op string, err error) {
	e.log.Error("dialog store failure",
		"op", op,
		"chat_id", t.in.SessionID,
		"state", t.sess.State,
		"err", err,
	)
	t.say("❌ An error occurred while processing your request!", nil)
	e.mainMenu(t)
}

// missingDraft состояние не соответствует черновику, ошибка автомата.
func (e *Engine) missingDraft(t *turn) {
	e.log.Error("dialog draft missing",
		"chat_id", t.in.SessionID,
		"state", t.sess.State,
		"fields", t.sess.Fields(),
	)
	t.say("❌ Failed to save the data, please start again", nil)
	e.mainMenu(t)
}
