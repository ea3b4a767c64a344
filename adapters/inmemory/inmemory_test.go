package inmemory_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/next-trace/scg-health-router/adapters/inmemory"
	"github.com/next-trace/scg-health-router/contract/health"
)

func TestInmemory_Lister_Pages(t *testing.T) {
	l := &inmemory.Lister{Channels: []string{"a", "b", "c"}, PageSize: 2}

	p1, err := l.ListChannels(t.Context(), "")
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}

	if len(p1.Channels) != 2 || p1.NextToken != "2" {
		t.Fatalf("page 1 = %+v", p1)
	}

	p2, err := l.ListChannels(t.Context(), p1.NextToken)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}

	if len(p2.Channels) != 1 || p2.Channels[0].ID != "c" || p2.NextToken != "" {
		t.Fatalf("page 2 = %+v", p2)
	}
}

func TestInmemory_Lister_SinglePageAndBadToken(t *testing.T) {
	l := &inmemory.Lister{Channels: []string{"a", "b"}}

	p, err := l.ListChannels(t.Context(), "")
	if err != nil || len(p.Channels) != 2 || p.NextToken != "" {
		t.Fatalf("page = %+v err=%v", p, err)
	}

	var inv *inmemory.InvalidTokenError
	if _, err := l.ListChannels(t.Context(), "nope"); !errors.As(err, &inv) {
		t.Fatalf("want InvalidTokenError, got %v", err)
	}
}

func TestInmemory_Tags(t *testing.T) {
	tags := &inmemory.Tags{}
	tags.Tag("arn:a", health.TagMap{"PROJECT-SERVICE": "a"})

	res, err := tags.LookupTags(t.Context(), "arn:a")
	if err != nil || len(res) != 1 {
		t.Fatalf("res=%v err=%v", res, err)
	}

	if res, _ := tags.LookupTags(t.Context(), "arn:missing"); len(res) != 0 {
		t.Fatalf("want no resources, got %v", res)
	}

	if len(tags.Lookups) != 2 {
		t.Fatalf("lookups=%v", tags.Lookups)
	}
}

func TestInmemory_ConcurrentSafety(t *testing.T) {
	ad := inmemory.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)

		go func() {
			defer wg.Done()

			_ = ad.Dispatch(t.Context(), "arn:c", "s", "m")
		}()

		go func() {
			defer wg.Done()

			ad.AddChannel("arn:c")
		}()

		go func() {
			defer wg.Done()

			_, _ = ad.LookupTags(t.Context(), "arn:x")
		}()
	}

	wg.Wait()

	if n := len(ad.Sent()); n != 50 {
		t.Fatalf("notifications=%d", n)
	}

	if n := len(ad.Channels); n != 50 {
		t.Fatalf("channels=%d", n)
	}

	if n := len(ad.Lookups); n != 50 {
		t.Fatalf("lookups=%d", n)
	}
}
