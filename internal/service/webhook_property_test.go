package service

import (
	"testing"

	"pgregory.net/rapid"
)

// TestProperty_WebhookUpsertModel drives random upsert sequences for one
// account and checks them against a map model: one subscription per event,
// ids fixed at creation, URL always the latest one sent, and created set
// exactly when some event was new.
func TestProperty_WebhookUpsertModel(t *testing.T) {
	events := []string{EventOrderCreated, EventOrderCancelled, EventTradeExecuted}
	urls := []string{"https://a.example/h", "https://b.example/h", "https://c.example/h"}

	rapid.Check(t, func(t *rapid.T) {
		svc, ledger := newTestWebhookService()
		if _, err := ledger.Create("alice"); err != nil {
			t.Fatalf("create: %v", err)
		}
		ctx := as("alice")

		type sub struct{ id, url string }
		model := map[string]sub{}

		steps := rapid.IntRange(1, 12).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			evs := rapid.SliceOfN(rapid.SampledFrom(events), 1, 4).Draw(t, "events")
			url := rapid.SampledFrom(urls).Draw(t, "url")

			wantCreated := false
			for _, ev := range evs {
				if _, ok := model[ev]; !ok {
					wantCreated = true
				}
			}

			got, created, err := svc.Upsert(ctx, UpsertWebhookRequest{AccountID: "alice", URL: url, Events: evs})
			if err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
			if created != wantCreated {
				t.Fatalf("step %d: created = %v, want %v", i, created, wantCreated)
			}

			seen := map[string]bool{}
			for _, w := range got {
				if seen[w.Event] {
					t.Fatalf("step %d: %s returned twice", i, w.Event)
				}
				seen[w.Event] = true
				if w.URL != url {
					t.Fatalf("step %d: %s url = %s, want %s", i, w.Event, w.URL, url)
				}
				if prev, ok := model[w.Event]; ok && prev.id != w.WebhookID {
					t.Fatalf("step %d: %s id moved %s -> %s", i, w.Event, prev.id, w.WebhookID)
				}
				model[w.Event] = sub{w.WebhookID, url}
			}
		}

		list, err := svc.List(ctx, "alice")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != len(model) {
			t.Fatalf("List has %d hooks, model %d", len(list), len(model))
		}
		for _, w := range list {
			if m := model[w.Event]; m.id != w.WebhookID || m.url != w.URL {
				t.Fatalf("%s = (%s, %s), model (%s, %s)", w.Event, w.WebhookID, w.URL, m.id, m.url)
			}
		}
	})
}
