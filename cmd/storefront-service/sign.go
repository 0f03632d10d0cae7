package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yashrajoria/storefront-service/models"
	awspkg "github.com/yashrajoria/storefront-service/pkg/aws"
	"github.com/yashrajoria/storefront-service/payment"
	"go.uber.org/zap"
)

func signCmd() *cobra.Command {
	var (
		storeID          string
		processorOrderID string
		paymentID        string
		enqueue          bool
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the callback signature for a processor order and payment",
		Long: "Computes the hex HMAC-SHA256 signature a processor would send for the given ids.\n" +
			"With --enqueue the signed callback is also sent to the payment callback queue.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if processorOrderID == "" || paymentID == "" {
				return errors.New("--order and --payment are required")
			}
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			secret := rt.cfg.SigningSecret()
			if !secret.IsSet() {
				return errors.New("signing secret is not configured")
			}
			signature := payment.Sign(secret.Reveal(), processorOrderID, paymentID)
			fmt.Fprintln(cmd.OutOrStdout(), signature)

			if !enqueue {
				return nil
			}
			if storeID == "" {
				return errors.New("--store is required with --enqueue")
			}
			if rt.cfg.PaymentCallbackQueueURL == "" {
				return errors.New("PAYMENT_CALLBACK_QUEUE_URL is not set")
			}
			body, err := json.Marshal(models.PaymentCallback{
				StoreID:          storeID,
				ProcessorOrderID: processorOrderID,
				PaymentID:        paymentID,
				Signature:        signature,
			})
			if err != nil {
				return err
			}
			queue := awspkg.NewSQSConsumer(rt.aws, rt.cfg.PaymentCallbackQueueURL, rt.logger)
			if err := queue.SendMessage(cmd.Context(), string(body)); err != nil {
				return err
			}
			rt.logger.Info("Signed callback enqueued",
				zap.String("store_id", storeID),
				zap.String("processor_order_id", processorOrderID),
				zap.String("payment_id", paymentID),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&storeID, "store", "", "store id the order belongs to")
	cmd.Flags().StringVar(&processorOrderID, "order", "", "processor order id")
	cmd.Flags().StringVar(&paymentID, "payment", "", "processor payment id")
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "send the signed callback to the callback queue")
	return cmd
}
