package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/honeypot/backend/internal/model/session"
)

type backend struct {
	name          string
	open          func(t *testing.T) Store
	countSessions func(t *testing.T, s Store, id string) int
}

func backends(t *testing.T) []backend {
	list := []backend{
		{
			name: "memory",
			open: func(t *testing.T) Store { return NewMemoryStore() },
			countSessions: func(t *testing.T, s Store, id string) int {
				mem := s.(*MemoryStore)
				mem.mu.RLock()
				defer mem.mu.RUnlock()
				if _, ok := mem.sessions[id]; ok {
					return 1
				}
				return 0
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) Store {
				s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "honeypot.db"))
				require.NoError(t, err)
				return s
			},
			countSessions: func(t *testing.T, s Store, id string) int {
				return countRows(t, s.(*SQLiteStore).db, id)
			},
		},
	}

	if url := os.Getenv("HONEYPOT_TEST_DATABASE_URL"); url != "" {
		list = append(list, backend{
			name: "postgres",
			open: func(t *testing.T) Store {
				s, err := NewPostgresStore(context.Background(), url)
				require.NoError(t, err)
				return s
			},
			countSessions: func(t *testing.T, s Store, id string) int {
				var n int
				err := s.(*PostgresStore).pool.QueryRow(context.Background(),
					`SELECT COUNT(*) FROM sessions WHERE session_id = $1`, id).Scan(&n)
				require.NoError(t, err)
				return n
			},
		})
	}
	return list
}

func countRows(t *testing.T, db *sql.DB, id string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE session_id = ?`, id).Scan(&n))
	return n
}

func uniqueID(t *testing.T) string {
	return fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano())
}

func testProfile(label string) session.Profile {
	return session.Profile{IP: "10.0.0.1", ISP: "Acme Networks", Location: label, Lat: 1.5, Lng: -2.5, Device: "Android 14"}
}

func baseTime() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
}

func TestStoreContract(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			t.Run("get or create is idempotent", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()
				ctx := context.Background()
				id := uniqueID(t)

				first, err := s.GetOrCreateSession(ctx, id, testProfile("Lagos, Nigeria"), baseTime())
				require.NoError(t, err)
				second, err := s.GetOrCreateSession(ctx, id, testProfile("Moscow, Russia"), baseTime().Add(time.Hour))
				require.NoError(t, err)

				assert.True(t, first.Equal(baseTime()))
				assert.True(t, second.Equal(first))

				intel, err := s.SessionIntel(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, "Lagos, Nigeria", intel.ScammerLocation)
				assert.Equal(t, 1, b.countSessions(t, s, id))
			})

			t.Run("concurrent first turns create one row", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()
				ctx := context.Background()
				id := uniqueID(t)

				const workers = 16
				starts := make([]time.Time, workers)
				errs := make([]error, workers)
				var wg sync.WaitGroup
				for i := 0; i < workers; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						starts[i], errs[i] = s.GetOrCreateSession(ctx, id, testProfile(fmt.Sprintf("loc-%d", i)), baseTime().Add(time.Duration(i)*time.Second))
					}(i)
				}
				wg.Wait()

				for i := 0; i < workers; i++ {
					require.NoError(t, errs[i])
					assert.True(t, starts[i].Equal(starts[0]), "worker %d saw a different start time", i)
				}
				assert.Equal(t, 1, b.countSessions(t, s, id))
			})

			t.Run("append turn writes scammer then agent", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()
				ctx := context.Background()
				id := uniqueID(t)

				_, err := s.GetOrCreateSession(ctx, id, testProfile("Manila, Philippines"), baseTime())
				require.NoError(t, err)

				leak := "Visa: 4111111111111111, CVV: 123"
				ts := baseTime().Add(42 * time.Second)
				require.NoError(t, s.AppendTurn(ctx, session.Turn{
					SessionID:      id,
					Timestamp:      ts,
					ScammerContent: "send me your card",
					Psychology:     "Aggressive",
					Strategy:       "Prize scam",
					AgentReply:     "Here it is: " + leak,
					FakeLeak:       &leak,
				}))

				transcript, err := s.FullTranscript(ctx, id)
				require.NoError(t, err)
				require.Len(t, transcript, 2)

				scammer, agent := transcript[0], transcript[1]
				assert.Equal(t, session.SenderScammer, scammer.Sender)
				assert.Equal(t, session.SenderAgent, agent.Sender)
				assert.True(t, scammer.Timestamp.Equal(ts))
				assert.True(t, agent.Timestamp.Equal(ts))
				assert.NotEqual(t, scammer.ID, agent.ID)

				require.NotNil(t, scammer.Psychology)
				require.NotNil(t, scammer.Strategy)
				assert.Equal(t, "Aggressive", *scammer.Psychology)
				assert.Equal(t, "Prize scam", *scammer.Strategy)
				assert.Nil(t, scammer.FakeDataLeaked)

				assert.Nil(t, agent.Psychology)
				assert.Nil(t, agent.Strategy)
				require.NotNil(t, agent.FakeDataLeaked)
				assert.Equal(t, leak, *agent.FakeDataLeaked)
			})

			t.Run("recent history is bounded and oldest first", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()
				ctx := context.Background()
				id := uniqueID(t)

				_, err := s.GetOrCreateSession(ctx, id, testProfile("Kolkata, India"), baseTime())
				require.NoError(t, err)

				for i := 1; i <= 4; i++ {
					require.NoError(t, s.AppendTurn(ctx, session.Turn{
						SessionID:      id,
						Timestamp:      baseTime().Add(time.Duration(i) * time.Second),
						ScammerContent: fmt.Sprintf("s%d", i),
						AgentReply:     fmt.Sprintf("a%d", i),
					}))
				}

				history, err := s.RecentHistory(ctx, id, 5)
				require.NoError(t, err)
				require.Len(t, history, 5)

				got := make([]string, 0, len(history))
				for _, h := range history {
					got = append(got, h.String())
				}
				assert.Equal(t, []string{"Agent: a2", "Scammer: s3", "Agent: a3", "Scammer: s4", "Agent: a4"}, got)

				defaulted, err := s.RecentHistory(ctx, id, 0)
				require.NoError(t, err)
				assert.Len(t, defaulted, DefaultHistoryLimit)
			})

			t.Run("recent history follows timestamp order", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()
				ctx := context.Background()
				id := uniqueID(t)

				_, err := s.GetOrCreateSession(ctx, id, testProfile("Lima, Peru"), baseTime())
				require.NoError(t, err)

				// A slower turn commits after a later-stamped one.
				for _, i := range []int{1, 3, 2} {
					require.NoError(t, s.AppendTurn(ctx, session.Turn{
						SessionID:      id,
						Timestamp:      baseTime().Add(time.Duration(i) * time.Second),
						ScammerContent: fmt.Sprintf("s%d", i),
						AgentReply:     fmt.Sprintf("a%d", i),
					}))
				}

				history, err := s.RecentHistory(ctx, id, 3)
				require.NoError(t, err)

				got := make([]string, 0, len(history))
				for _, h := range history {
					got = append(got, h.String())
				}
				assert.Equal(t, []string{"Agent: a2", "Scammer: s3", "Agent: a3"}, got)
			})

			t.Run("concurrent turns keep pairs adjacent", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()
				ctx := context.Background()
				id := uniqueID(t)

				_, err := s.GetOrCreateSession(ctx, id, testProfile("Bucharest, Romania"), baseTime())
				require.NoError(t, err)

				const turns = 10
				var wg sync.WaitGroup
				for i := 0; i < turns; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						assert.NoError(t, s.AppendTurn(ctx, session.Turn{
							SessionID:      id,
							Timestamp:      baseTime().Add(time.Duration(i) * time.Millisecond),
							ScammerContent: fmt.Sprintf("s%d", i),
							AgentReply:     fmt.Sprintf("a%d", i),
						}))
					}(i)
				}
				wg.Wait()

				transcript, err := s.FullTranscript(ctx, id)
				require.NoError(t, err)
				require.Len(t, transcript, 2*turns)
				for i := 0; i < len(transcript); i += 2 {
					scammer, agent := transcript[i], transcript[i+1]
					assert.Equal(t, session.SenderScammer, scammer.Sender)
					assert.Equal(t, session.SenderAgent, agent.Sender)
					assert.Equal(t, "a"+scammer.Content[1:], agent.Content)
					assert.True(t, scammer.Timestamp.Equal(agent.Timestamp))
					if i > 0 {
						assert.False(t, scammer.Timestamp.Before(transcript[i-1].Timestamp))
					}
				}
			})

			t.Run("unknown session", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()
				ctx := context.Background()

				_, err := s.SessionIntel(ctx, "missing-"+uniqueID(t))
				assert.ErrorIs(t, err, ErrSessionNotFound)

				err = s.AppendTurn(ctx, session.Turn{SessionID: "missing-" + uniqueID(t), Timestamp: baseTime()})
				assert.Error(t, err)

				history, err := s.RecentHistory(ctx, "missing-"+uniqueID(t), 5)
				require.NoError(t, err)
				assert.Empty(t, history)
			})
		})
	}
}
