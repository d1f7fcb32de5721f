package service

import (
	"context"
	"errors"
	"testing"

	"bookpassport/internal/model"
)

func newWishlistFixture(t *testing.T) (*WishlistService, string) {
	t.Helper()
	books := newMockBookRepository()
	book := &model.Book{OwnerID: "alice", Title: "Dune", Status: model.BookAvailable}
	if err := books.Create(context.Background(), book); err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return NewWishlistService(newMockWishlistRepository(), books), book.ID
}

func TestWishlistService_AddTwice(t *testing.T) {
	svc, bookID := newWishlistFixture(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, "bob", bookID)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if first.AlreadyLogged || !first.InWishlist {
		t.Errorf("first add = %+v", first)
	}

	second, err := svc.Add(ctx, "bob", bookID)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if !second.AlreadyLogged {
		t.Errorf("second add = %+v, want already_logged", second)
	}

	items, _ := svc.List(ctx, "bob")
	if len(items) != 1 {
		t.Errorf("items = %d, want 1", len(items))
	}
}

func TestWishlistService_RemoveNonMemberIsNoop(t *testing.T) {
	svc, bookID := newWishlistFixture(t)

	res, err := svc.Remove(context.Background(), "bob", bookID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if res.InWishlist {
		t.Errorf("result = %+v", res)
	}
}

func TestWishlistService_Toggle(t *testing.T) {
	svc, bookID := newWishlistFixture(t)
	ctx := context.Background()

	on, _ := svc.Toggle(ctx, "bob", bookID)
	off, _ := svc.Toggle(ctx, "bob", bookID)
	if !on.InWishlist || off.InWishlist {
		t.Errorf("toggle sequence = %v, %v", on.InWishlist, off.InWishlist)
	}

	items, _ := svc.List(ctx, "bob")
	if items == nil || len(items) != 0 {
		t.Errorf("items = %#v, want empty", items)
	}
}

func TestWishlistService_UnknownBook(t *testing.T) {
	svc, _ := newWishlistFixture(t)
	if _, err := svc.Add(context.Background(), "bob", "missing"); !errors.Is(err, model.ErrBookNotFound) {
		t.Errorf("err = %v, want ErrBookNotFound", err)
	}
}
