package service

import (
	"context"
	"strings"
	"testing"

	"github.com/civicpulse/issue-service/internal/domain"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

func TestAddAndListComments(t *testing.T) {
	f := newFixture(t)
	f.store.SetClock(steppingClock())
	reporter := f.user(t, "rep", domain.RoleCitizen)
	other := f.user(t, "other", domain.RoleCitizen)
	issue := f.issue(t, reporter, domain.IssueStatusReported)
	ctx := context.Background()

	first, err := f.comments.Add(ctx, other, issue.ID, "  first  ")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if first.Content != "first" || first.AuthorID != other.ID || first.Author == nil || first.Author.ID != other.ID {
		t.Fatalf("unexpected comment: %+v", first)
	}
	if _, err := f.comments.Add(ctx, reporter, issue.ID, "second"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	list, err := f.comments.List(ctx, issue.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Content != "second" || list[1].Content != "first" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	_, err = f.comments.Add(ctx, other, "missing", "hello")
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = f.comments.Add(ctx, other, issue.ID, "   ")
	assertCode(t, err, apperrors.CodeValidation)
	_, err = f.comments.Add(ctx, other, issue.ID, strings.Repeat("x", domain.MaxCommentLength+1))
	assertCode(t, err, apperrors.CodeValidation)
	_, err = f.comments.List(ctx, "missing")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestDeleteComment(t *testing.T) {
	f := newFixture(t)
	reporter := f.user(t, "rep", domain.RoleCitizen)
	author := f.user(t, "author", domain.RoleCitizen)
	official := f.user(t, "off", domain.RoleOfficial)
	admin := f.user(t, "adm", domain.RoleAdmin)
	issue := f.issue(t, reporter, domain.IssueStatusReported)
	otherIssue := f.issue(t, reporter, domain.IssueStatusReported)
	ctx := context.Background()

	c1, _ := f.comments.Add(ctx, author, issue.ID, "one")
	c2, _ := f.comments.Add(ctx, author, issue.ID, "two")

	assertCode(t, f.comments.Delete(ctx, reporter, issue.ID, c1.ID), apperrors.CodeForbidden)
	assertCode(t, f.comments.Delete(ctx, official, issue.ID, c1.ID), apperrors.CodeForbidden)
	assertCode(t, f.comments.Delete(ctx, author, otherIssue.ID, c1.ID), apperrors.CodeNotFound)

	if err := f.comments.Delete(ctx, author, issue.ID, c1.ID); err != nil {
		t.Fatalf("author Delete() error = %v", err)
	}
	if err := f.comments.Delete(ctx, admin, issue.ID, c2.ID); err != nil {
		t.Fatalf("admin Delete() error = %v", err)
	}
	assertCode(t, f.comments.Delete(ctx, admin, issue.ID, c2.ID), apperrors.CodeNotFound)

	if _, _, err := f.issues.Get(ctx, issue.ID); err != nil {
		t.Fatalf("deleting comments must not affect the issue: %v", err)
	}
}
