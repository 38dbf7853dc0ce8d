package conversation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/inventory-bot/internal/dialog"
	"github.com/Spok95/inventory-bot/internal/domain/inventory"
	"github.com/Spok95/inventory-bot/internal/export"
	"github.com/Spok95/inventory-bot/internal/infra/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	clock = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	today = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
)

const (
	chatID = int64(1)
	userID = int64(42)
)

type harness struct {
	t        *testing.T
	engine   *Engine
	store    *inventory.MemoryStore
	sessions *dialog.Store
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, nil)
}

// newHarnessWith позволяет подменить хранилище (например, падающим).
func newHarnessWith(t *testing.T, wrap func(*inventory.MemoryStore) Inventory) *harness {
	t.Helper()
	mem := inventory.NewMemoryStore()
	var store Inventory = mem
	if wrap != nil {
		store = wrap(mem)
	}
	sessions := dialog.NewStore()
	e := New(store, sessions, logger.NewWithWriter(io.Discard, "dev"),
		WithClock(func() time.Time { return clock }),
		WithLocation(time.UTC),
	)
	return &harness{t: t, engine: e, store: mem, sessions: sessions}
}

// send отправляет текст и проверяет, что ответ предлагает варианты следующего шага.
func (h *harness) send(text string) Reply {
	h.t.Helper()
	r := h.engine.Handle(context.Background(), Input{SessionID: chatID, UserID: userID, Text: text})
	require.NotEmpty(h.t, r.Messages, "no reply to %q", text)
	require.NotNil(h.t, r.Messages[len(r.Messages)-1].Keyboard, "no suggested replies after %q", text)
	return r
}

func (h *harness) sendAll(texts ...string) Reply {
	h.t.Helper()
	var r Reply
	for _, text := range texts {
		r = h.send(text)
	}
	return r
}

func (h *harness) session() dialog.Session {
	sess, release := h.sessions.Acquire(chatID)
	defer release()
	return *sess
}

func (h *harness) seed(barcode string, qty int) {
	h.t.Helper()
	_, err := h.store.CreateProduct(context.Background(), inventory.NewProduct{
		Barcode: barcode, Name: "Milk", ExpiryDate: today.AddDate(0, 0, 3), Quantity: qty, AddedDate: today, OwnerID: 7,
	})
	require.NoError(h.t, err)
}

func (h *harness) product(barcode string) *inventory.Product {
	h.t.Helper()
	p, err := h.store.FindProductByBarcode(context.Background(), barcode)
	require.NoError(h.t, err)
	return p
}

func (h *harness) reports() []inventory.DamageReport {
	h.t.Helper()
	list, err := h.store.ListDamageReports(context.Background())
	require.NoError(h.t, err)
	return list
}

func texts(r Reply) string {
	var parts []string
	for _, m := range r.Messages {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n")
}

func TestNewProductScenario(t *testing.T) {
	h := newHarness(t)

	r := h.engine.Start(context.Background(), Input{SessionID: chatID, UserID: userID})
	assert.Equal(t, dialog.StateMainMenu, r.State)
	assert.Equal(t, mainMenuKeyboard(), r.Messages[0].Keyboard)

	assert.Equal(t, dialog.StateNewBarcode, h.send(BtnAddItem).State)
	assert.Equal(t, dialog.StateNewExpiry, h.send("123").State)
	assert.Equal(t, dialog.StateNewQty, h.send(BtnToday).State)
	assert.Equal(t, dialog.StateNewName, h.send("5").State)

	r = h.send("Milk")
	assert.Equal(t, dialog.StateMainMenu, r.State)
	assert.Contains(t, texts(r), "✅ Product added successfully!")

	p := h.product("123")
	assert.Equal(t, inventory.Product{
		ID: p.ID, Barcode: "123", Name: "Milk", ExpiryDate: today, Quantity: 5, AddedDate: today, OwnerID: userID,
	}, *p)
	assert.Empty(t, h.session().Fields())
}

func TestNewProduct_ManualExpiry(t *testing.T) {
	h := newHarness(t)
	h.sendAll(BtnAddItem, "9")

	r := h.send(BtnManualDate)
	assert.Equal(t, dialog.StateNewExpiry, r.State)
	assert.Contains(t, texts(r), "YYYY-MM-DD")

	r = h.send("31.01.2027")
	assert.Equal(t, dialog.StateNewExpiry, r.State)
	assert.Contains(t, texts(r), "Invalid date format")

	assert.Equal(t, dialog.StateNewQty, h.send("2027-01-31").State)
	assert.Equal(t, dialog.StateNewName, h.sendAll(BtnOtherQty, "250").State)
	h.send("Cheese")

	p := h.product("9")
	assert.Equal(t, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), p.ExpiryDate)
	assert.Equal(t, 250, p.Quantity)
}

func TestNewProduct_RelativeExpiry(t *testing.T) {
	tests := map[string]int{BtnToday: 0, BtnTomorrow: 1, BtnWeek: 7, BtnMonth: 30}
	i := 0
	for btn, days := range tests {
		t.Run(btn, func(t *testing.T) {
			h := newHarness(t)
			barcode := fmt.Sprint(100 + i)
			i++
			h.sendAll(BtnAddItem, barcode, btn, "1", "Item")
			assert.Equal(t, today.AddDate(0, 0, days), h.product(barcode).ExpiryDate)
		})
	}
}

func TestBarcodeValidation(t *testing.T) {
	for _, start := range []string{BtnAddItem, BtnAddDamaged} {
		t.Run(start, func(t *testing.T) {
			h := newHarness(t)
			state := h.send(start).State

			for _, bad := range []string{"abc", "12a4", "12 34", "-1", "+7"} {
				r := h.send(bad)
				assert.Equal(t, state, r.State, bad)
				assert.Contains(t, texts(r), "digits only", bad)
				assert.NotContains(t, h.session().Fields(), "barcode")
			}

			r := h.send("  000123 ")
			assert.NotEqual(t, state, r.State)
			assert.Equal(t, "000123", h.session().Fields()["barcode"])
		})
	}
}

func TestQuantityValidation(t *testing.T) {
	h := newHarness(t)
	h.sendAll(BtnAddItem, "55", BtnToday)

	for _, bad := range []string{"0", "-4", "abc", "2.5", "1e3"} {
		r := h.send(bad)
		assert.Equal(t, dialog.StateNewQty, r.State, bad)
		fields := h.session().Fields()
		assert.Equal(t, "55", fields["barcode"], "fields kept after %q", bad)
		assert.Equal(t, "2026-10-19", fields["expiryDate"])
		assert.NotContains(t, fields, "quantity")
	}
	assert.Equal(t, dialog.StateNewName, h.send("3").State)
}

func TestEmptyName(t *testing.T) {
	h := newHarness(t)
	h.sendAll(BtnAddItem, "55", BtnToday, "3")

	r := h.send("   ")
	assert.Equal(t, dialog.StateNewName, r.State)
	assert.Contains(t, texts(r), "cannot be empty")
}

func TestDamaged_ExceedsStock(t *testing.T) {
	h := newHarness(t)
	h.seed("123", 5)

	r := h.sendAll(BtnAddDamaged, "123")
	assert.Equal(t, dialog.StateDmgQty, r.State)
	assert.Contains(t, texts(r), "available: 5")

	r = h.send("7")
	assert.Equal(t, dialog.StateDmgQty, r.State)
	assert.Contains(t, texts(r), "(7) is greater than the available quantity (5)")
	assert.Empty(t, h.reports())

	for _, bad := range []string{"0", "-2", "x"} {
		assert.Equal(t, dialog.StateDmgQty, h.send(bad).State, bad)
	}
	assert.Empty(t, h.reports())
	assert.Equal(t, 5, h.product("123").Quantity)
}

func TestDamaged_Registered(t *testing.T) {
	h := newHarness(t)
	h.seed("123", 5)
	before := *h.product("123")

	assert.Equal(t, dialog.StateDmgReason, h.sendAll(BtnAddDamaged, "123", "3").State)
	r := h.send("Expired")
	assert.Equal(t, dialog.StateMainMenu, r.State)
	assert.Contains(t, texts(r), "✅ Damaged item recorded successfully!")

	reps := h.reports()
	require.Len(t, reps, 1)
	assert.Equal(t, inventory.DamageReport{
		ID: reps[0].ID, Barcode: "123", Name: "Milk", Quantity: 3, Reason: "Expired", ReportDate: today, OwnerID: userID,
	}, reps[0])

	after := *h.product("123")
	assert.Equal(t, 2, after.Quantity)
	after.Quantity = before.Quantity
	assert.Equal(t, before, after)
	assert.Empty(t, h.session().Fields())
}

func TestDamaged_Unregistered(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, dialog.StateDmgName, h.sendAll(BtnAddDamaged, "777").State)
	r := h.send("Eggs")
	assert.Equal(t, dialog.StateDmgQty, r.State)
	assert.Equal(t, damagedQuantityKeyboard(false), r.Messages[len(r.Messages)-1].Keyboard)

	assert.Equal(t, dialog.StateDmgReason, h.send("40").State)
	r = h.send(BtnOtherReason)
	assert.Equal(t, dialog.StateDmgReason, r.State)
	assert.Contains(t, texts(r), "Please enter the damage reason")

	h.send("dropped two trays")
	reps := h.reports()
	require.Len(t, reps, 1)
	assert.Equal(t, "Eggs", reps[0].Name)
	assert.Equal(t, 40, reps[0].Quantity)
	assert.Equal(t, "dropped two trays", reps[0].Reason)

	_, err := h.store.FindProductByBarcode(context.Background(), "777")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

// reachState пути до каждого состояния автомата.
var reachState = map[dialog.State][]string{
	dialog.StateMainMenu:   {},
	dialog.StateNewBarcode: {BtnAddItem},
	dialog.StateNewExpiry:  {BtnAddItem, "1"},
	dialog.StateNewQty:     {BtnAddItem, "1", BtnToday},
	dialog.StateNewName:    {BtnAddItem, "1", BtnToday, "4"},
	dialog.StateDmgBarcode: {BtnAddDamaged},
	dialog.StateDmgName:    {BtnAddDamaged, "404"},
	dialog.StateDmgQty:     {BtnAddDamaged, "404", "Eggs"},
	dialog.StateDmgReason:  {BtnAddDamaged, "404", "Eggs", "2"},
}

func TestHome_FromEveryState(t *testing.T) {
	for state, path := range reachState {
		for _, home := range []string{BtnHome, "home", "HOME"} {
			t.Run(string(state)+"/"+home, func(t *testing.T) {
				h := newHarness(t)
				if len(path) > 0 {
					require.Equal(t, state, h.sendAll(path...).State)
				}
				r := h.send(home)
				assert.Equal(t, dialog.StateMainMenu, r.State)
				assert.Equal(t, mainMenuKeyboard(), r.Messages[len(r.Messages)-1].Keyboard)

				sess := h.session()
				assert.Empty(t, sess.Fields())
				assert.Nil(t, sess.NewProduct)
				assert.Nil(t, sess.Damaged)
			})
		}
	}
}

func TestBack(t *testing.T) {
	tests := []struct {
		name   string
		seed   bool
		path   []string
		want   dialog.State
		fields map[string]any
	}{
		{name: "main menu", path: nil, want: dialog.StateMainMenu, fields: map[string]any{}},
		{name: "new barcode", path: []string{BtnAddItem}, want: dialog.StateMainMenu, fields: map[string]any{}},
		{name: "expiry", path: []string{BtnAddItem, "1"}, want: dialog.StateNewBarcode,
			fields: map[string]any{"isDamaged": false, "barcode": "1"}},
		{name: "new qty", path: []string{BtnAddItem, "1", BtnToday}, want: dialog.StateNewExpiry,
			fields: map[string]any{"isDamaged": false, "barcode": "1", "expiryDate": "2026-10-19"}},
		{name: "new name", path: []string{BtnAddItem, "1", BtnToday, "4"}, want: dialog.StateNewQty,
			fields: map[string]any{"isDamaged": false, "barcode": "1", "expiryDate": "2026-10-19", "quantity": 4}},
		{name: "damaged barcode", path: []string{BtnAddDamaged}, want: dialog.StateMainMenu, fields: map[string]any{}},
		{name: "damaged name", path: []string{BtnAddDamaged, "404"}, want: dialog.StateDmgBarcode,
			fields: map[string]any{"isDamaged": true, "barcode": "404"}},
		{name: "damaged qty unregistered", path: []string{BtnAddDamaged, "404", "Eggs"}, want: dialog.StateDmgName,
			fields: map[string]any{"isDamaged": true, "barcode": "404", "productName": "Eggs"}},
		{name: "damaged qty registered", seed: true, path: []string{BtnAddDamaged, "123"}, want: dialog.StateDmgBarcode,
			fields: map[string]any{"isDamaged": true, "barcode": "123"}},
		{name: "damaged reason", seed: true, path: []string{BtnAddDamaged, "123", "2"}, want: dialog.StateDmgQty,
			fields: map[string]any{"isDamaged": true, "barcode": "123", "productName": "Milk", "currentQuantity": 5, "quantity": 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.seed {
				h.seed("123", 5)
			}
			h.sendAll(tt.path...)

			r := h.send(BtnBack)
			assert.Equal(t, tt.want, r.State)
			assert.Equal(t, tt.fields, h.session().Fields())
		})
	}
}

func TestBack_ThenContinue(t *testing.T) {
	h := newHarness(t)
	h.seed("123", 5)

	// штрихкод перевводится, результат прошлого поиска не должен остаться
	h.sendAll(BtnAddDamaged, "123", BtnBack)
	assert.Equal(t, dialog.StateDmgName, h.send("888").State)
	assert.Equal(t, dialog.StateDmgQty, h.send("Juice").State)
	assert.Equal(t, dialog.StateDmgReason, h.send("9").State)
	h.send(DamageReasons[2])

	reps := h.reports()
	require.Len(t, reps, 1)
	assert.Equal(t, "888", reps[0].Barcode)
	assert.Equal(t, "Juice", reps[0].Name)
	assert.Equal(t, 5, h.product("123").Quantity)
}

func TestDuplicateBarcode(t *testing.T) {
	h := newHarness(t)
	h.seed("123", 5)

	r := h.sendAll(BtnAddItem, "123", BtnToday, "10", "Another milk")
	assert.Equal(t, dialog.StateMainMenu, r.State)
	assert.Contains(t, texts(r), "already registered")

	list, err := h.store.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Milk", list[0].Name)
	assert.Equal(t, 5, list[0].Quantity)
}

type failingStore struct {
	Inventory
	failFind, failDamage, failList bool
}

var errBoom = errors.New("connection reset")

func (f *failingStore) FindProductByBarcode(ctx context.Context, barcode string) (*inventory.Product, error) {
	if f.failFind {
		return nil, &inventory.StoreError{Op: "find product", Err: errBoom}
	}
	return f.Inventory.FindProductByBarcode(ctx, barcode)
}

func (f *failingStore) RecordDamage(ctx context.Context, d inventory.NewDamage) (*inventory.DamageReport, error) {
	if f.failDamage {
		return nil, &inventory.StoreError{Op: "record damage", Err: errBoom}
	}
	return f.Inventory.RecordDamage(ctx, d)
}

func (f *failingStore) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	if f.failList {
		return nil, &inventory.StoreError{Op: "list products", Err: errBoom}
	}
	return f.Inventory.ListProducts(ctx)
}

func (f *failingStore) ExportSnapshot(ctx context.Context) (*inventory.Snapshot, error) {
	if f.failList {
		return nil, &inventory.StoreError{Op: "export snapshot", Err: errBoom}
	}
	return f.Inventory.ExportSnapshot(ctx)
}

func TestStoreFailures(t *testing.T) {
	tests := []struct {
		name  string
		store failingStore
		path  []string
	}{
		{name: "lookup", store: failingStore{failFind: true}, path: []string{BtnAddDamaged, "123"}},
		{name: "record damage", store: failingStore{failDamage: true}, path: []string{BtnAddDamaged, "123", "1", "Expired"}},
		{name: "list", store: failingStore{failList: true}, path: []string{BtnListItems}},
		{name: "export", store: failingStore{failList: true}, path: []string{BtnExport}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := tt.store
			h := newHarnessWith(t, func(m *inventory.MemoryStore) Inventory {
				fs.Inventory = m
				return &fs
			})
			h.seed("123", 5)

			r := h.sendAll(tt.path...)
			assert.Equal(t, dialog.StateMainMenu, r.State)
			assert.Contains(t, texts(r), "An error occurred")
			assert.Empty(t, h.session().Fields())
			assert.Empty(t, h.reports())
			assert.Equal(t, 5, h.product("123").Quantity)
		})
	}
}

func TestMissingDraft(t *testing.T) {
	h := newHarness(t)
	sess, release := h.sessions.Acquire(chatID)
	sess.State = dialog.StateNewName
	release()

	r := h.send("Milk")
	assert.Equal(t, dialog.StateMainMenu, r.State)
	assert.Contains(t, texts(r), "Failed to save the data")

	list, err := h.store.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListViews(t *testing.T) {
	h := newHarness(t)

	r := h.send(BtnListItems)
	assert.Contains(t, texts(r), "No items registered yet")
	r = h.send(BtnListDamaged)
	assert.Contains(t, texts(r), "No damaged items recorded")

	for i := 0; i < 12; i++ {
		h.seed(fmt.Sprint(1000+i), i+1)
	}
	r = h.send(BtnListItems)
	assert.Equal(t, dialog.StateMainMenu, r.State)
	require.Len(t, r.Messages, 3)
	assert.Equal(t, 10, strings.Count(r.Messages[0].Text, "🏷️"))
	assert.Equal(t, 2, strings.Count(r.Messages[1].Text, "🏷️"))
	assert.Nil(t, r.Messages[0].Keyboard)

	h.sendAll(BtnAddDamaged, "1000", "1", "Expired")
	r = h.send(BtnListDamaged)
	require.Len(t, r.Messages, 2)
	assert.Contains(t, r.Messages[0].Text, "📝 Reason: Expired")
	assert.Contains(t, r.Messages[0].Text, "📅 Report date: 2026-10-19")
}

func TestExport(t *testing.T) {
	h := newHarness(t)

	r := h.send(BtnExport)
	assert.Contains(t, texts(r), "No data to export")

	h.seed("123", 5)
	h.sendAll(BtnAddDamaged, "123", "2", "Expired")
	h.sendAll(BtnAddDamaged, "9", "Eggs", "3", DamageReasons[1])

	r = h.send(BtnExport)
	assert.Equal(t, dialog.StateMainMenu, r.State)
	doc := r.Messages[0].Document
	require.NotNil(t, doc)
	assert.Equal(t, "inventory_export_20261019_1000.xlsx", doc.Name)

	got, err := export.Read(doc.Data)
	require.NoError(t, err)
	want, err := h.store.ExportSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 3, got.Products[0].Quantity)
}

func TestMainMenu_UnknownInput(t *testing.T) {
	h := newHarness(t)
	r := h.send("hello")
	assert.Equal(t, dialog.StateMainMenu, r.State)
	assert.Equal(t, mainMenuKeyboard(), r.Messages[0].Keyboard)
}

func TestCancelAndAbort(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	in := Input{SessionID: chatID, UserID: userID}

	h.sendAll(BtnAddItem, "1")
	r := h.engine.Cancel(ctx, in)
	assert.Equal(t, dialog.StateMainMenu, r.State)
	assert.Equal(t, "Operation cancelled", r.Messages[0].Text)
	assert.Empty(t, h.session().Fields())

	h.sendAll(BtnAddDamaged, "1")
	r = h.engine.Abort(ctx, in)
	assert.Equal(t, dialog.StateMainMenu, r.State)
	assert.Contains(t, r.Messages[0].Text, "unexpected error")
	assert.Empty(t, h.session().Fields())
}

func TestConcurrentSessions(t *testing.T) {
	h := newHarness(t)
	h.seed("500", 1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for _, text := range []string{BtnAddItem, fmt.Sprint(id), BtnWeek, "3", "Item"} {
				h.engine.Handle(ctx, Input{SessionID: id, UserID: id, Text: text})
			}
			for _, text := range []string{BtnAddDamaged, "500", "7", "Expired"} {
				h.engine.Handle(ctx, Input{SessionID: id, UserID: id, Text: text})
			}
		}(int64(i + 10))
	}
	wg.Wait()

	list, err := h.store.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 21)
	assert.Len(t, h.reports(), 20)
	assert.Equal(t, 1000-20*7, h.product("500").Quantity)
}

func TestHandle_LogsStep(t *testing.T) {
	var buf bytes.Buffer
	e := New(inventory.NewMemoryStore(), dialog.NewStore(), logger.NewWithWriter(&buf, "dev"),
		WithClock(func() time.Time { return clock }),
	)
	ctx := context.Background()
	for _, text := range []string{BtnAddItem, "123", BtnToday} {
		e.Handle(ctx, Input{SessionID: chatID, UserID: userID, Text: text})
	}

	out := buf.String()
	assert.Contains(t, out, `"step":"MainMenu"`)
	assert.Contains(t, out, `"step":"EnterBarcode"`)
	assert.Contains(t, out, `"step":"ProductDetails"`)
	assert.Contains(t, out, `"barcode":"123"`)
}
