package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/repositories"
)

var errBoom = errors.New("boom")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// fakeStore is an in-memory ledger and reference store shared by the fake repositories
type fakeStore struct {
	mu sync.Mutex

	nextID     uint
	classes    map[uint]*models.ClassSession
	roles      map[uint]*models.Role
	ranks      map[uint]*models.Rank
	modalities map[uint]*models.Modality
	teachers   map[uint]*models.Teacher
	fixed      *models.FixedValues
	tokens     map[uint]*models.PasswordResetToken

	// failure injection
	failSlotAssignments map[string]bool // by SlotKey.Legacy()
	failFinance         error
	failPeriodFrom      time.Time // ListClasses fails for this window start
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		classes:             map[uint]*models.ClassSession{},
		roles:               map[uint]*models.Role{},
		ranks:               map[uint]*models.Rank{},
		modalities:          map[uint]*models.Modality{},
		teachers:            map[uint]*models.Teacher{},
		tokens:              map[uint]*models.PasswordResetToken{},
		failSlotAssignments: map[string]bool{},
	}
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) repo() repositories.Repository {
	return &fakeRepository{store: s}
}

// ===== fixtures =====

func (s *fakeStore) addRole(name, rate string) uint {
	id := s.id()
	s.roles[id] = &models.Role{ID: id, Name: name, HourlyRate: dec(rate)}
	return id
}

func (s *fakeStore) addRank(name, multiplier string) uint {
	id := s.id()
	s.ranks[id] = &models.Rank{ID: id, Name: name, Multiplier: dec(multiplier)}
	return id
}

func (s *fakeStore) addModality(name string) uint {
	id := s.id()
	s.modalities[id] = &models.Modality{ID: id, Name: name}
	return id
}

func (s *fakeStore) addTeacher(name, email string, role models.UserRole, password string) uint {
	id := s.id()
	t := &models.Teacher{ID: id, Name: name, Role: role}
	if email != "" {
		t.Email = &email
	}
	if password != "" {
		if err := t.SetPassword(password); err != nil {
			panic(err)
		}
	}
	s.teachers[id] = t
	return id
}

type fixtureAssignment struct {
	teacher, role, rank uint
}

func (s *fakeStore) addClass(date, start string, modality uint, capacity, attendance int, assignments ...fixtureAssignment) uint {
	id := s.id()
	c := &models.ClassSession{
		ID:         id,
		Date:       datatypes.Date(day(date)),
		StartTime:  start,
		Capacity:   capacity,
		Attendance: attendance,
		ModalityID: modality,
	}
	for _, a := range assignments {
		c.Assignments = append(c.Assignments, models.ClassAssignment{
			ID: s.id(), ClassID: id, TeacherID: a.teacher, RoleID: a.role, RankID: a.rank,
		})
	}
	s.classes[id] = c
	return id
}

// ===== Repository =====

type fakeRepository struct {
	store *fakeStore
}

func (r *fakeRepository) Class() repositories.ClassRepository { return &fakeClassRepo{r.store} }
func (r *fakeRepository) Reference() repositories.ReferenceRepository {
	return &fakeReferenceRepo{r.store}
}
func (r *fakeRepository) Teacher() repositories.TeacherRepository { return &fakeTeacherRepo{r.store} }
func (r *fakeRepository) PasswordReset() repositories.PasswordResetRepository {
	return &fakeResetRepo{r.store}
}
func (r *fakeRepository) Finance() repositories.FinanceRepository { return &fakeFinanceRepo{r.store} }

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func (r *fakeRepository) Ping(ctx context.Context) error { return nil }
func (r *fakeRepository) Close() error                   { return nil }

// ===== classes =====

type fakeClassRepo struct{ s *fakeStore }

func (f *fakeClassRepo) hydrate(c *models.ClassSession) *models.ClassSession {
	out := *c
	out.Modality = *f.s.modalities[c.ModalityID]
	out.Assignments = make([]models.ClassAssignment, len(c.Assignments))
	for i, a := range c.Assignments {
		a.Teacher = *f.s.teachers[a.TeacherID]
		a.Role = *f.s.roles[a.RoleID]
		a.Rank = *f.s.ranks[a.RankID]
		out.Assignments[i] = a
	}
	return &out
}

func (f *fakeClassRepo) duplicate(c *models.ClassSession) bool {
	for _, o := range f.s.classes {
		if o.ID != c.ID && o.Day().Equal(c.Day()) && o.StartTime == c.StartTime && o.ModalityID == c.ModalityID {
			return true
		}
	}
	return false
}

func (f *fakeClassRepo) Create(ctx context.Context, tx *gorm.DB, class *models.ClassSession) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if f.duplicate(class) {
		return repositories.ErrDuplicate
	}
	class.ID = f.s.id()
	stored := *class
	stored.Assignments = nil
	for _, a := range class.Assignments {
		a.ID = f.s.id()
		a.ClassID = class.ID
		stored.Assignments = append(stored.Assignments, a)
	}
	f.s.classes[class.ID] = &stored
	return nil
}

func (f *fakeClassRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ClassSession, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	c, ok := f.s.classes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return f.hydrate(c), nil
}

func (f *fakeClassRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.ClassFilters) ([]models.ClassSession, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	var out []models.ClassSession
	for _, c := range f.s.classes {
		if !filters.From.IsZero() && c.Day().Before(filters.From) {
			continue
		}
		if !filters.To.IsZero() && !c.Day().Before(filters.To) {
			continue
		}
		out = append(out, *f.hydrate(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeClassRepo) Update(ctx context.Context, tx *gorm.DB, class *models.ClassSession) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	c, ok := f.s.classes[class.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if f.duplicate(class) {
		return repositories.ErrDuplicate
	}
	c.Date, c.StartTime, c.Capacity, c.ModalityID = class.Date, class.StartTime, class.Capacity, class.ModalityID
	return nil
}

func (f *fakeClassRepo) ReplaceAssignments(ctx context.Context, tx *gorm.DB, classID uint, assignments []models.ClassAssignment) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	c, ok := f.s.classes[classID]
	if !ok {
		return repositories.ErrNotFound
	}
	c.Assignments = nil
	for _, a := range assignments {
		a.ID = f.s.id()
		a.ClassID = classID
		c.Assignments = append(c.Assignments, a)
	}
	return nil
}

func (f *fakeClassRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if _, ok := f.s.classes[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.s.classes, id)
	return nil
}

func (f *fakeClassRepo) UpdateAttendance(ctx context.Context, tx *gorm.DB, id uint, attendance int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	c, ok := f.s.classes[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.Attendance = attendance
	return nil
}

func (f *fakeClassRepo) IsAssigned(ctx context.Context, tx *gorm.DB, classID, teacherID uint) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	c, ok := f.s.classes[classID]
	if !ok {
		return false, nil
	}
	for _, a := range c.Assignments {
		if a.TeacherID == teacherID {
			return true, nil
		}
	}
	return false, nil
}

// ===== reference data =====

type fakeReferenceRepo struct{ s *fakeStore }

func (f *fakeReferenceRepo) ListRoles(ctx context.Context, tx *gorm.DB) ([]models.Role, error) {
	var out []models.Role
	for _, r := range f.s.roles {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeReferenceRepo) GetRole(ctx context.Context, tx *gorm.DB, id uint) (*models.Role, error) {
	r, ok := f.s.roles[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (f *fakeReferenceRepo) CreateRole(ctx context.Context, tx *gorm.DB, role *models.Role) error {
	for _, r := range f.s.roles {
		if r.Name == role.Name {
			return repositories.ErrDuplicate
		}
	}
	role.ID = f.s.id()
	stored := *role
	f.s.roles[role.ID] = &stored
	return nil
}

func (f *fakeReferenceRepo) UpdateRole(ctx context.Context, tx *gorm.DB, role *models.Role) error {
	if _, ok := f.s.roles[role.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *role
	f.s.roles[role.ID] = &stored
	return nil
}

func (f *fakeReferenceRepo) DeleteRole(ctx context.Context, tx *gorm.DB, id uint) error {
	if _, ok := f.s.roles[id]; !ok {
		return repositories.ErrNotFound
	}
	for _, c := range f.s.classes {
		for _, a := range c.Assignments {
			if a.RoleID == id {
				return repositories.ErrInUse
			}
		}
	}
	delete(f.s.roles, id)
	return nil
}

func (f *fakeReferenceRepo) ListRanks(ctx context.Context, tx *gorm.DB) ([]models.Rank, error) {
	var out []models.Rank
	for _, r := range f.s.ranks {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeReferenceRepo) GetRank(ctx context.Context, tx *gorm.DB, id uint) (*models.Rank, error) {
	r, ok := f.s.ranks[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (f *fakeReferenceRepo) CreateRank(ctx context.Context, tx *gorm.DB, rank *models.Rank) error {
	rank.ID = f.s.id()
	stored := *rank
	f.s.ranks[rank.ID] = &stored
	return nil
}

func (f *fakeReferenceRepo) UpdateRank(ctx context.Context, tx *gorm.DB, rank *models.Rank) error {
	if _, ok := f.s.ranks[rank.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *rank
	f.s.ranks[rank.ID] = &stored
	return nil
}

func (f *fakeReferenceRepo) DeleteRank(ctx context.Context, tx *gorm.DB, id uint) error {
	if _, ok := f.s.ranks[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.s.ranks, id)
	return nil
}

func (f *fakeReferenceRepo) ListModalities(ctx context.Context, tx *gorm.DB) ([]models.Modality, error) {
	var out []models.Modality
	for _, m := range f.s.modalities {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeReferenceRepo) GetModality(ctx context.Context, tx *gorm.DB, id uint) (*models.Modality, error) {
	m, ok := f.s.modalities[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (f *fakeReferenceRepo) CreateModality(ctx context.Context, tx *gorm.DB, modality *models.Modality) error {
	modality.ID = f.s.id()
	stored := *modality
	f.s.modalities[modality.ID] = &stored
	return nil
}

func (f *fakeReferenceRepo) UpdateModality(ctx context.Context, tx *gorm.DB, modality *models.Modality) error {
	if _, ok := f.s.modalities[modality.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *modality
	f.s.modalities[modality.ID] = &stored
	return nil
}

func (f *fakeReferenceRepo) DeleteModality(ctx context.Context, tx *gorm.DB, id uint) error {
	if _, ok := f.s.modalities[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.s.modalities, id)
	return nil
}

func (f *fakeReferenceRepo) GetFixedValues(ctx context.Context, tx *gorm.DB) (*models.FixedValues, error) {
	if f.s.fixed == nil {
		return nil, repositories.ErrNotFound
	}
	out := *f.s.fixed
	return &out, nil
}

func (f *fakeReferenceRepo) SaveFixedValues(ctx context.Context, tx *gorm.DB, values *models.FixedValues) error {
	if values.ID == 0 {
		values.ID = f.s.id()
	}
	stored := *values
	f.s.fixed = &stored
	return nil
}

// ===== teachers and reset tokens =====

type fakeTeacherRepo struct{ s *fakeStore }

func (f *fakeTeacherRepo) List(ctx context.Context, tx *gorm.DB) ([]models.Teacher, error) {
	var out []models.Teacher
	for _, t := range f.s.teachers {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTeacherRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Teacher, error) {
	t, ok := f.s.teachers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (f *fakeTeacherRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Teacher, error) {
	for _, t := range f.s.teachers {
		if t.Email != nil && *t.Email == email {
			out := *t
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeTeacherRepo) Create(ctx context.Context, tx *gorm.DB, teacher *models.Teacher) error {
	if teacher.Email != nil {
		if _, err := f.GetByEmail(ctx, tx, *teacher.Email); err == nil {
			return repositories.ErrDuplicate
		}
	}
	teacher.ID = f.s.id()
	stored := *teacher
	f.s.teachers[teacher.ID] = &stored
	return nil
}

func (f *fakeTeacherRepo) UpdatePassword(ctx context.Context, tx *gorm.DB, id uint, passwordHash string) error {
	t, ok := f.s.teachers[id]
	if !ok {
		return repositories.ErrNotFound
	}
	t.PasswordHash = passwordHash
	return nil
}

type fakeResetRepo struct{ s *fakeStore }

func (f *fakeResetRepo) Create(ctx context.Context, tx *gorm.DB, token *models.PasswordResetToken) error {
	token.ID = f.s.id()
	stored := *token
	f.s.tokens[token.ID] = &stored
	return nil
}

func (f *fakeResetRepo) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.PasswordResetToken, error) {
	for _, t := range f.s.tokens {
		if t.Token == token {
			out := *t
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeResetRepo) MarkUsed(ctx context.Context, tx *gorm.DB, id uint) error {
	t, ok := f.s.tokens[id]
	if !ok || t.Used {
		return repositories.ErrNotFound
	}
	t.Used = true
	return nil
}

// ===== finance joins =====

type fakeFinanceRepo struct{ s *fakeStore }

func (f *fakeFinanceRepo) window(from, to time.Time) []*models.ClassSession {
	var out []*models.ClassSession
	for _, c := range f.s.classes {
		if !c.Day().Before(from) && c.Day().Before(to) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day().Equal(out[j].Day()) {
			return out[i].Day().Before(out[j].Day())
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f *fakeFinanceRepo) classRow(c *models.ClassSession) repositories.ClassRow {
	return repositories.ClassRow{
		ClassID:      c.ID,
		Date:         c.Day(),
		StartTime:    c.StartTime,
		Weekday:      int(c.Day().Weekday()),
		Capacity:     c.Capacity,
		Attendance:   c.Attendance,
		ModalityID:   c.ModalityID,
		ModalityName: f.s.modalities[c.ModalityID].Name,
	}
}

func (f *fakeFinanceRepo) assignmentRows(c *models.ClassSession) []repositories.AssignmentRow {
	var out []repositories.AssignmentRow
	for _, a := range c.Assignments {
		role, rank := f.s.roles[a.RoleID], f.s.ranks[a.RankID]
		out = append(out, repositories.AssignmentRow{
			AssignmentID: a.ID,
			ClassID:      c.ID,
			ClassDate:    c.Day(),
			StartTime:    c.StartTime,
			ModalityName: f.s.modalities[c.ModalityID].Name,
			Attendance:   c.Attendance,
			Capacity:     c.Capacity,
			TeacherID:    a.TeacherID,
			TeacherName:  f.s.teachers[a.TeacherID].Name,
			RoleID:       role.ID,
			RoleName:     role.Name,
			HourlyRate:   role.HourlyRate,
			RankID:       rank.ID,
			RankName:     rank.Name,
			Multiplier:   rank.Multiplier,
		})
	}
	return out
}

func (f *fakeFinanceRepo) matches(c *models.ClassSession, key models.SlotKey) bool {
	return c.StartTime == key.StartTime &&
		c.Day().Weekday() == key.Weekday &&
		f.s.modalities[c.ModalityID].Name == key.Modality
}

func (f *fakeFinanceRepo) ListClasses(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]repositories.ClassRow, error) {
	if f.s.failFinance != nil {
		return nil, f.s.failFinance
	}
	if !f.s.failPeriodFrom.IsZero() && from.Equal(f.s.failPeriodFrom) {
		return nil, errBoom
	}
	var out []repositories.ClassRow
	for _, c := range f.window(from, to) {
		out = append(out, f.classRow(c))
	}
	return out, nil
}

func (f *fakeFinanceRepo) ListAssignments(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]repositories.AssignmentRow, error) {
	if f.s.failFinance != nil {
		return nil, f.s.failFinance
	}
	var out []repositories.AssignmentRow
	for _, c := range f.window(from, to) {
		out = append(out, f.assignmentRows(c)...)
	}
	return out, nil
}

func (f *fakeFinanceRepo) ListSlotGroups(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]repositories.SlotGroupRow, error) {
	if f.s.failFinance != nil {
		return nil, f.s.failFinance
	}
	type groupKey struct {
		modality uint
		weekday  int
		start    string
	}
	groups := map[groupKey]*repositories.SlotGroupRow{}
	var order []groupKey

	for _, c := range f.window(from, to) {
		k := groupKey{c.ModalityID, int(c.Day().Weekday()), c.StartTime}
		g, ok := groups[k]
		if !ok {
			g = &repositories.SlotGroupRow{
				ModalityID:   c.ModalityID,
				ModalityName: f.s.modalities[c.ModalityID].Name,
				Weekday:      k.weekday,
				StartTime:    c.StartTime,
			}
			groups[k] = g
			order = append(order, k)
		}
		g.ClassCount++
		g.TotalAttendance += c.Attendance
		g.Capacity = max(g.Capacity, c.Capacity)
	}

	out := make([]repositories.SlotGroupRow, 0, len(order))
	for _, k := range order {
		g := groups[k]
		out = append(out, *g)
	}
	return out, nil
}

func (f *fakeFinanceRepo) ListSlotClasses(ctx context.Context, tx *gorm.DB, from, to time.Time, key models.SlotKey) ([]repositories.ClassRow, error) {
	var out []repositories.ClassRow
	for _, c := range f.window(from, to) {
		if f.matches(c, key) {
			out = append(out, f.classRow(c))
		}
	}
	return out, nil
}

func (f *fakeFinanceRepo) ListSlotAssignments(ctx context.Context, tx *gorm.DB, from, to time.Time, key models.SlotKey) ([]repositories.AssignmentRow, error) {
	if f.s.failSlotAssignments[key.Legacy()] {
		return nil, errBoom
	}
	var out []repositories.AssignmentRow
	for _, c := range f.window(from, to) {
		if f.matches(c, key) {
			out = append(out, f.assignmentRows(c)...)
		}
	}
	return out, nil
}

func (f *fakeFinanceRepo) ListTeacherAssignments(ctx context.Context, tx *gorm.DB, teacherID uint, from, to time.Time) ([]repositories.AssignmentRow, error) {
	var out []repositories.AssignmentRow
	for _, c := range f.window(from, to) {
		for _, r := range f.assignmentRows(c) {
			if r.TeacherID == teacherID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeFinanceRepo) GetBlendedRates(ctx context.Context, tx *gorm.DB) (repositories.BlendedRates, error) {
	var out repositories.BlendedRates
	if len(f.s.roles) > 0 {
		sum := decimal.Zero
		for _, r := range f.s.roles {
			sum = sum.Add(r.HourlyRate)
		}
		out.AverageHourlyRate = sum.Div(decimal.NewFromInt(int64(len(f.s.roles))))
	}
	if len(f.s.ranks) > 0 {
		sum := decimal.Zero
		for _, r := range f.s.ranks {
			sum = sum.Add(r.Multiplier)
		}
		out.AverageMultiplier = sum.Div(decimal.NewFromInt(int64(len(f.s.ranks))))
	}
	return out, nil
}
