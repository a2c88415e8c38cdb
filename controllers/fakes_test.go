package controllers

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/database"
	"github.com/nirmalhandloom/storebackend/events"
	"github.com/nirmalhandloom/storebackend/models"
	"github.com/nirmalhandloom/storebackend/payments"
	"github.com/nirmalhandloom/storebackend/utils"
)

var (
	_ UserStore        = (*fakeUsers)(nil)
	_ CategoryStore    = (*fakeCategories)(nil)
	_ OrderStore       = (*fakeOrders)(nil)
	_ PaymentGateway   = (*fakeGateway)(nil)
	_ events.Publisher = (*recordingPublisher)(nil)
)

func duplicate(field string) error {
	return fmt.Errorf("%w: E11000 duplicate key error index: %s_1", database.ErrDuplicate, field)
}

type fakeUsers struct {
	mu    sync.Mutex
	users []models.User
	err   error
}

func copyUser(u models.User) *models.User {
	u.Addresses = slices.Clone(u.Addresses)
	return &u
}

func (f *fakeUsers) add(us ...models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, us...)
}

func (f *fakeUsers) get(id bson.ObjectID) (models.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return *copyUser(u), true
		}
	}
	return models.User{}, false
}

func (f *fakeUsers) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.get(id)
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) FindByLogin(_ context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	email := utils.NormalizeEmail(login)
	for _, u := range f.users {
		if (u.Email != "" && u.Email == email) || (u.Phone != "" && u.Phone == login) {
			return copyUser(u), nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeUsers) Exists(_ context.Context, email, phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.clash(bson.NilObjectID, email, phone) != "", nil
}

// clash names the identity field another user already holds.
func (f *fakeUsers) clash(self bson.ObjectID, email, phone string) string {
	for _, u := range f.users {
		if u.ID == self {
			continue
		}
		if email != "" && u.Email == email {
			return "email"
		}
		if phone != "" && u.Phone == phone {
			return "phone"
		}
	}
	return ""
}

func (f *fakeUsers) Insert(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if field := f.clash(bson.NilObjectID, u.Email, u.Phone); field != "" {
		return duplicate(field)
	}
	f.users = append(f.users, *copyUser(*u))
	return nil
}

func (f *fakeUsers) SaveProfile(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if field := f.clash(u.ID, u.Email, u.Phone); field != "" {
		return duplicate(field)
	}
	return f.replace(u)
}

func (f *fakeUsers) SaveAddresses(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return f.replace(u)
}

func (f *fakeUsers) replace(u *models.User) error {
	for i := range f.users {
		if f.users[i].ID == u.ID {
			f.users[i] = *copyUser(*u)
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeUsers) List(context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *copyUser(u))
	}
	return out, nil
}

func (f *fakeUsers) SetActive(_ context.Context, id bson.ObjectID, active bool, at time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.users {
		if f.users[i].ID == id {
			f.users[i].IsActive = active
			f.users[i].UpdatedAt = at
			return copyUser(f.users[i]), nil
		}
	}
	return nil, database.ErrNotFound
}

type fakeCategories struct {
	mu         sync.Mutex
	categories []models.Category
	subs       []models.SubCategory
	listCalls  int
	err        error
}

func (f *fakeCategories) ListActive(context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Category{}
	for _, c := range f.categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCategories) FindByID(_ context.Context, id bson.ObjectID) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.categories {
		if c.Id == id {
			return &c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeCategories) Insert(_ context.Context, cat *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, c := range f.categories {
		if c.Name == cat.Name {
			return duplicate("name")
		}
	}
	f.categories = append(f.categories, *cat)
	return nil
}

func (f *fakeCategories) Delete(_ context.Context, id bson.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i, c := range f.categories {
		if c.Id == id {
			f.categories = slices.Delete(f.categories, i, i+1)
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeCategories) InsertSub(_ context.Context, sub *models.SubCategory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subs = append(f.subs, *sub)
	return nil
}

func (f *fakeCategories) ListActiveSubs(_ context.Context, categoryID bson.ObjectID) ([]models.SubCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.SubCategory{}
	for _, s := range f.subs {
		if s.Category == categoryID && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCategories) DeleteSub(_ context.Context, id bson.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i, s := range f.subs {
		if s.Id == id {
			f.subs = slices.Delete(f.subs, i, i+1)
			return nil
		}
	}
	return database.ErrNotFound
}

type fakeOrders struct {
	mu     sync.Mutex
	orders []models.Order
	err    error
}

func (f *fakeOrders) get(id bson.ObjectID) (models.Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

func (f *fakeOrders) Insert(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.orders = append(f.orders, *o)
	return nil
}

func (f *fakeOrders) FindByID(_ context.Context, id bson.ObjectID) (*models.OrderWithUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.get(id)
	if !ok {
		return nil, database.ErrNotFound
	}
	return &models.OrderWithUser{Order: o}, nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID bson.ObjectID) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Order{}
	for _, o := range f.orders {
		if o.User == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) ListAll(context.Context) ([]models.OrderWithUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.OrderWithUser, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, models.OrderWithUser{Order: o})
	}
	return out, nil
}

func (f *fakeOrders) SaveState(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i := range f.orders {
		if f.orders[i].ID == o.ID {
			f.orders[i] = *o
			return nil
		}
	}
	return database.ErrNotFound
}

type fakeGateway struct {
	amounts []float64
	order   *payments.GatewayOrder
	err     error
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount float64) (*payments.GatewayOrder, error) {
	g.amounts = append(g.amounts, amount)
	if g.err != nil {
		return nil, g.err
	}
	return g.order, nil
}

type sentMail struct {
	name, email string
	orderID     bson.ObjectID
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) OrderConfirmation(_ context.Context, name, email string, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{name: name, email: email, orderID: order.ID})
	return m.err
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, evt *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, evt.EventType)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }
