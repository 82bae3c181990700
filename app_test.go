package main

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"brokerctl/internal/config"
	"brokerctl/pkg/logger"
)

var _ = Describe("App", func() {
	var a *app

	BeforeEach(func() {
		cfg := config.Config{}
		log, err := logger.New(logger.Config{Level: "error", Format: "console"})
		Expect(err).NotTo(HaveOccurred())

		a, err = newApp(&cfg, log)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("command dispatch", func() {
		It("rejects a missing command", func() {
			err := a.run(context.Background(), nil)
			Expect(err).To(MatchError(ErrMissingCommand))
		})

		It("rejects an unknown command", func() {
			err := a.run(context.Background(), []string{"defragment"})
			Expect(err).To(MatchError(ErrUnknownCommand))
		})

		It("reports unconfigured audit for history", func() {
			err := a.run(context.Background(), []string{"history"})
			Expect(err).To(MatchError(ErrAuditNotEnabled))
		})

		It("reports unconfigured probe", func() {
			err := a.run(context.Background(), []string{"probe"})
			Expect(err).To(MatchError(ErrProbeDisabled))
		})

		It("requires a tool and verb for run", func() {
			err := a.run(context.Background(), []string{"run", "rabbitmqctl"})
			Expect(err).To(MatchError(ErrMissingRunArgs))
		})
	})

	Describe("wiring", func() {
		It("builds the full client graph", func() {
			Expect(a.executor).NotTo(BeNil())
			Expect(a.ctl).NotTo(BeNil())
			Expect(a.plugins).NotTo(BeNil())
			Expect(a.audit).To(BeNil())
			Expect(a.probe).To(BeNil())
		})
	})
})
