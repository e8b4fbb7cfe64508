//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/velora-shop/api/internal/domain"
	pconfig "github.com/velora-shop/api/internal/platform/config"
	pfirestore "github.com/velora-shop/api/internal/platform/firestore"
	"github.com/velora-shop/api/internal/repositories"
)

func TestOrderRepositoryIntegration(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    "orders-test",
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	repo, err := NewOrderRepository(provider)
	if err != nil {
		t.Fatalf("new order repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Second)

	draft := domain.Order{
		PaymentRef: "pi_it_settled_1",
		UserRef:    "u_it_1",
		Email:      "Buyer@Example.com",
		Lines:      []domain.OrderLine{{ProductRef: "p_it_1", Quantity: 2}},
		Amount:     42.5,
		Status:     domain.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := repo.Create(ctx, draft)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated order id")
	}
	if created.Email != "buyer@example.com" {
		t.Fatalf("expected lowercased email, got %q", created.Email)
	}

	resolved, err := repo.FindByPaymentRef(ctx, "pi_it_settled_1")
	if err != nil {
		t.Fatalf("find by payment ref: %v", err)
	}
	if resolved.ID != created.ID {
		t.Fatalf("payment ref resolved order %q, want %q", resolved.ID, created.ID)
	}

	// The payment reference is claimed by an index document; a second insert
	// for the same reference must lose to the first.
	_, err = repo.Create(ctx, domain.Order{
		PaymentRef: "pi_it_settled_1",
		Email:      "other@example.com",
		Amount:     10,
		Status:     domain.OrderStatusPending,
	})
	if err == nil {
		t.Fatalf("expected conflict for duplicate payment reference")
	}
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) {
		t.Fatalf("expected repository error, got %T %v", err, err)
	}
	if !repositories.IsConflict(err) {
		t.Fatalf("expected conflict category, got %v", err)
	}
	if after, err := repo.FindByPaymentRef(ctx, "pi_it_settled_1"); err != nil || after.ID != created.ID {
		t.Fatalf("duplicate insert must not disturb the stored order: %v %+v", err, after)
	}

	// Racing inserts for one payment reference: exactly one writer wins, the
	// rest observe the conflict.
	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			got, err := repo.Create(ctx, domain.Order{
				PaymentRef: "pi_it_race_1",
				Email:      fmt.Sprintf("racer%02d@example.com", worker),
				Amount:     float64(worker + 1),
				Status:     domain.OrderStatusPending,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, got.ID)
			case repositories.IsConflict(err):
				conflicts++
			default:
				t.Errorf("worker %d: unexpected error: %v", worker, err)
			}
		}(i)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly one winning insert, got %d (%v)", len(winners), winners)
	}
	if conflicts != workers-1 {
		t.Fatalf("expected %d conflicts, got %d", workers-1, conflicts)
	}
	raceOrder, err := repo.FindByPaymentRef(ctx, "pi_it_race_1")
	if err != nil {
		t.Fatalf("find raced payment ref: %v", err)
	}
	if raceOrder.ID != winners[0] {
		t.Fatalf("payment ref resolves %q, want winner %q", raceOrder.ID, winners[0])
	}

	// Listings come back newest first; CreatedAt is preserved on insert so the
	// seeded timestamps drive the order.
	listEmail := "history@example.com"
	var seeded []string
	for i := 0; i < 3; i++ {
		order, err := repo.Create(ctx, domain.Order{
			PaymentRef: fmt.Sprintf("pi_it_history_%d", i),
			Email:      listEmail,
			Amount:     float64(10 * (i + 1)),
			Status:     domain.OrderStatusDelivered,
			CreatedAt:  now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed order %d: %v", i, err)
		}
		seeded = append(seeded, order.ID)
	}

	byEmail, err := repo.ListByEmail(ctx, strings.ToUpper(listEmail))
	if err != nil {
		t.Fatalf("list by email: %v", err)
	}
	if len(byEmail) != 3 {
		t.Fatalf("expected 3 orders for %s, got %d", listEmail, len(byEmail))
	}
	for i, want := range []string{seeded[2], seeded[1], seeded[0]} {
		if byEmail[i].ID != want {
			t.Fatalf("list by email position %d: got %q want %q", i, byEmail[i].ID, want)
		}
	}
	for i := 1; i < len(byEmail); i++ {
		if byEmail[i].CreatedAt.After(byEmail[i-1].CreatedAt) {
			t.Fatalf("list by email not newest first at position %d", i)
		}
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 orders in total, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("list all not newest first at position %d", i)
		}
	}
	if all[0].ID != seeded[2] {
		t.Fatalf("expected newest seeded order first, got %q", all[0].ID)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}

	cmd := exec.Command("docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "info")
	if err := cmd.Run(); err != nil {
		t.Fatalf("docker daemon not available: %v", err)
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "stop", id)
	_ = cmd.Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("firestore emulator at %s did not become ready within %s", endpoint, timeout)
}

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"
