package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/listsync"
	"github.com/simp-lee/dinesync/internal/module/upcoming"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printFooter[T any](w io.Writer, snap listsync.Snapshot[T]) {
	fmt.Fprintf(w, "page %d/%d, %d total\n",
		snap.Pagination.ClampedPage, snap.Pagination.TotalPages, snap.TotalCount)
}

func printMeals(w io.Writer, snap listsync.Snapshot[domain.Meal]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE\tRATING\tLIKES\tREVIEWS")
	for _, m := range snap.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.1f\t%d\t%d\n",
			m.ID, m.Title, m.Category, m.Price, m.Rating, m.Likes, m.ReviewsCount)
	}
	tw.Flush()
	printFooter(w, snap)
}

func printMealDetail(w io.Writer, m *domain.Meal) {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%d\n", m.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", m.Title)
	fmt.Fprintf(tw, "Category:\t%s\n", m.Category)
	fmt.Fprintf(tw, "Price:\t%.2f\n", m.Price)
	fmt.Fprintf(tw, "Rating:\t%.1f (%d reviews)\n", m.Rating, m.ReviewsCount)
	fmt.Fprintf(tw, "Likes:\t%d\n", m.Likes)
	fmt.Fprintf(tw, "Distributor:\t%s\n", m.Distributor)
	if m.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", m.Description)
	}
	if m.Ingredients != "" {
		fmt.Fprintf(tw, "Ingredients:\t%s\n", m.Ingredients)
	}
	tw.Flush()
}

func printUpcoming(w io.Writer, snap listsync.Snapshot[domain.UpcomingMeal]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE\tLIKES\tPUBLISHABLE")
	for _, m := range snap.Items {
		publishable := ""
		if upcoming.Publishable(m) {
			publishable = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%d\t%s\n",
			m.ID, m.Title, m.Category, m.Price, m.Likes, publishable)
	}
	tw.Flush()
	printFooter(w, snap)
}

func printReviews(w io.Writer, snap listsync.Snapshot[domain.Review]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tMEAL\tUSER\tRATING\tTEXT")
	for _, r := range snap.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			r.ID, r.MealTitle, r.UserName, r.Rating, r.Text)
	}
	tw.Flush()
	printFooter(w, snap)
}

func printRequests(w io.Writer, snap listsync.Snapshot[domain.MealRequest]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tMEAL\tUSER\tSTATUS\tTALLY")
	for _, r := range snap.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n",
			r.ID, r.MealTitle, r.UserName, r.Status, r.Likes)
	}
	tw.Flush()
	printFooter(w, snap)
}

func printUsers(w io.Writer, snap listsync.Snapshot[domain.HostelUser]) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tBADGE")
	for _, u := range snap.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			u.ID, u.Name, u.Email, u.Role, u.Badge())
	}
	tw.Flush()
	printFooter(w, snap)
}

func printPackages(w io.Writer, packs []domain.MembershipPackage) {
	tw := newTable(w)
	fmt.Fprintln(tw, "PACKAGE\tPRICE")
	for _, p := range packs {
		fmt.Fprintf(tw, "%s\t%.2f\n", p.Name, p.Price)
	}
	tw.Flush()
}
