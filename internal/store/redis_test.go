package store

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
)

func TestRedisBackend_DefaultKey(t *testing.T) {
	client, _ := redismock.NewClientMock()
	b := NewRedisBackend(client, "")
	if b.key != DefaultRedisKey {
		t.Errorf("key = %q, want %q", b.key, DefaultRedisKey)
	}
}

func TestRedisBackend_Load(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(redismock.ClientMock)
		want      string
		wantErr   error
	}{
		{
			name: "existing snapshot",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectGet("hb").SetVal(`{"api":{}}`)
			},
			want: `{"api":{}}`,
		},
		{
			name: "missing key",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectGet("hb").RedisNil()
			},
			wantErr: ErrNoSnapshot,
		},
		{
			name: "connection error",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectGet("hb").SetErr(errors.New("connection refused"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			tt.setupMock(mock)
			b := NewRedisBackend(client, "hb")

			got, err := b.Load(context.Background())
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
				}
			case tt.want == "":
				if err == nil {
					t.Error("Load() expected error, got nil")
				}
				if errors.Is(err, ErrNoSnapshot) {
					t.Error("connection errors must not look like a missing snapshot")
				}
			default:
				if err != nil {
					t.Fatalf("Load() error = %v", err)
				}
				if string(got) != tt.want {
					t.Errorf("Load() = %s, want %s", got, tt.want)
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet redis expectations: %v", err)
			}
		})
	}
}

func TestRedisBackend_Save(t *testing.T) {
	data := []byte(`{"api":{"status":"online"}}`)

	t.Run("success", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectSet("hb", data, 0).SetVal("OK")

		if err := NewRedisBackend(client, "hb").Save(context.Background(), data); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet redis expectations: %v", err)
		}
	})

	t.Run("failure", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectSet("hb", data, 0).SetErr(errors.New("READONLY"))

		if err := NewRedisBackend(client, "hb").Save(context.Background(), data); err == nil {
			t.Fatal("Save() expected error, got nil")
		}
	})
}

func TestRedisBackend_Ping(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")
	if err := NewRedisBackend(client, "hb").Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	client, mock = redismock.NewClientMock()
	mock.ExpectPing().SetErr(errors.New("connection refused"))
	if err := NewRedisBackend(client, "hb").Ping(context.Background()); err == nil {
		t.Error("Ping() expected error, got nil")
	}
}

func TestRedisBackend_PersistentStoreWritesSnapshot(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectGet(DefaultRedisKey).RedisNil()

	snap := Snapshot{"api": at("api", "online", 0)}
	data, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatalf("EncodeSnapshot() error = %v", err)
	}
	mock.ExpectSet(DefaultRedisKey, data, 0).SetVal("OK")

	ps := newPersistent(t, NewRedisBackend(client, ""))
	if err := ps.UpdateStatus(context.Background(), "api", at("api", "online", 0)); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet redis expectations: %v", err)
	}
}
