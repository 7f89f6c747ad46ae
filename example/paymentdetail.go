package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/ProZsolt/salt"
)

func main() {
	ctx := context.Background()

	// Authentication
	srv, err := salt.NewService(salt.ServiceOptions{})
	if err != nil {
		fmt.Println(err)
		return
	}
	err = srv.Login(ctx, "username", "password")
	if err != nil {
		fmt.Println(err)
		return
	}
	err = srv.VerifyLogin(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}

	// List the bills and keep them around
	var cache salt.Cache
	_, err = srv.Refresh(ctx, &cache)
	if err != nil {
		fmt.Println(err)
		return
	}

	// Download the May 2018 bill and its payment slip
	bill, ok := cache.ByMonth(2018, time.May)
	if !ok {
		fmt.Println("no bill for 2018-5")
		return
	}
	basePath := "bills"
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		fmt.Println(err)
		return
	}
	PDF := filepath.Join(basePath, bill.FileName())
	err = srv.DownloadBillFile(ctx, bill, PDF)
	if err != nil {
		fmt.Println(err)
		return
	}

	// Selectors can be swapped when the invoice layout changes again
	selector := func(period salt.Period) int {
		if !period.Start.Before(civil.Date{Year: 2020, Month: time.January, Day: 1}) {
			return 4
		}
		return salt.DefaultPageSelector(period)
	}
	err = salt.ExtractPaymentDetail(bill, PDF, filepath.Join(basePath, bill.PaymentDetailFileName()), selector)
	if err != nil {
		fmt.Println(err)
		return
	}
}
