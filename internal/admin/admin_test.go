package admin

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/cryptox"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/repomanager"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type stubManager struct {
	repomanager.RepositoryManager
	migrated bool
	err      error
}

func (m *stubManager) RunMigrations(context.Context, *sql.DB) error {
	m.migrated = true
	return m.err
}

// newMockOpener expects nothing by itself: tests queue their statements
// and then ExpectClose, since withAdmin closes the connection last.
func newMockOpener(t *testing.T) (Opener, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, mock.ExpectationsWereMet()) })
	open := func(context.Context, string) (*Admin, error) {
		return New(db, repomanager.NewPostgresRepositoryManager()), nil
	}
	return open, mock
}

func run(t *testing.T, open Opener, in string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(open, strings.NewReader(in))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenkey(t *testing.T) {
	out, err := run(t, nil, "", "genkey")
	require.NoError(t, err)

	key, err := base64.URLEncoding.DecodeString(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestPlanPut(t *testing.T) {
	open, mock := newMockOpener(t)
	mock.ExpectQuery(`INSERT INTO plans .* ON CONFLICT \(name\) DO UPDATE`).
		WithArgs("Premium", 4.99, 100, 20, 10, 10, true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectClose()

	out, err := run(t, open, "", "plan", "put", "--name", " Premium ", "--price", "4.99", "--slots", "100", "--gb", "20", "--ad-free")
	require.NoError(t, err)
	assert.Contains(t, out, "plan Premium saved (id 2)")
}

func TestPackPut(t *testing.T) {
	open, mock := newMockOpener(t)
	mock.ExpectQuery(`INSERT INTO packs`).
		WithArgs("Storage+", 1.5, 0, 5, 0, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectClose()

	out, err := run(t, open, "", "pack", "put", "--name", "Storage+", "--price", "1.5", "--gb", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "pack Storage+ saved (id 1)")
}

func TestPutPlan_Validation(t *testing.T) {
	a := New(nil, nil)
	_, err := a.PutPlan(context.Background(), &models.Plan{Name: "  "})
	require.ErrorIs(t, err, common.ErrValidation)
	_, err = a.PutPlan(context.Background(), &models.Plan{Name: "x", BaseSlots: -1})
	require.ErrorIs(t, err, common.ErrValidation)
	_, err = a.PutPack(context.Background(), &models.Pack{Name: "x", ExtraGB: -1})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestUserDisableEnable(t *testing.T) {
	open, mock := newMockOpener(t)
	mock.ExpectExec(`UPDATE users SET is_active = \$2`).
		WithArgs("alice@example.com", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	out, err := run(t, open, "", "user", "disable", "Alice@Example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice@Example.com disabled")

	open2, mock2 := newMockOpener(t)
	mock2.ExpectExec(`UPDATE users SET is_active = \$2`).
		WithArgs("bob@example.com", true).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock2.ExpectClose()

	_, err = run(t, open2, "", "user", "enable", "bob@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no account registered under bob@example.com")
}

func TestStats(t *testing.T) {
	open, mock := newMockOpener(t)
	mock.ExpectQuery(`SELECT\s+COUNT\(u\.id\)`).
		WillReturnRows(sqlmock.NewRows([]string{"users", "premium", "mrr", "ads"}).AddRow(int64(12), int64(3), 14.97, int64(40)))
	mock.ExpectClose()

	out, err := run(t, open, "", "stats", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"users":12,"premium_users":3,"mrr":14.97,"ad_views":40}`, out)
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	m := &stubManager{}
	open := func(context.Context, string) (*Admin, error) { return New(db, m), nil }

	out, err := run(t, open, "", "migrate")
	require.NoError(t, err)
	assert.True(t, m.migrated)
	assert.Contains(t, out, "schema is up to date")

	db2, mock2, err := sqlmock.New()
	require.NoError(t, err)
	mock2.ExpectClose()
	failing := &stubManager{err: errors.New("dirty database")}
	_, err = run(t, func(context.Context, string) (*Admin, error) { return New(db2, failing), nil }, "", "migrate")
	require.EqualError(t, err, "dirty database")
	require.NoError(t, mock.ExpectationsWereMet())
	require.NoError(t, mock2.ExpectationsWereMet())
}

func TestOpenPostgres_RequiresDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "")
	require.ErrorIs(t, err, common.ErrConfig)
}

func TestEncrypt(t *testing.T) {
	key := cryptox.GenerateKey()
	out, err := run(t, nil, "s3cret value\n", "encrypt", "--key", key)
	require.NoError(t, err)

	box, err := cryptox.NewBoxFromBase64(key)
	require.NoError(t, err)
	pt := box.DecryptText(strings.TrimSpace(out))
	assert.Equal(t, cryptox.Plaintext{Value: "s3cret value", Status: cryptox.OK}, pt)

	_, err = run(t, nil, "x\n", "encrypt", "--key", "")
	require.ErrorIs(t, err, common.ErrConfig)
}

func TestReadSecret_Terminal(t *testing.T) {
	oldRead, oldTerm := readPassword, isTerminal
	defer func() { readPassword, isTerminal = oldRead, oldTerm }()
	isTerminal = func(int) bool { return true }
	readPassword = func(int) ([]byte, error) { return []byte("typed"), nil }

	var w bytes.Buffer
	got, err := ReadSecret(os.Stdin, &w, "Value: ")
	require.NoError(t, err)
	assert.Equal(t, "typed", string(got))
	assert.Equal(t, "Value: \n", w.String())

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = ReadSecret(os.Stdin, &w, "Value: ")
	require.Error(t, err)
}

func TestReadSecret_Pipe(t *testing.T) {
	var w bytes.Buffer
	got, err := ReadSecret(strings.NewReader("last line"), &w, "> ")
	require.NoError(t, err)
	assert.Equal(t, "last line", string(got))

	_, err = ReadSecret(strings.NewReader(""), &w, "> ")
	require.Error(t, err)
}
