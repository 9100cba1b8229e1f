package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"token-reward-service/services"
)

type walletRequest struct {
	Wallet string `json:"wallet"`
}

type scoreRequest struct {
	Wallet   string  `json:"wallet"`
	GameType string  `json:"gameType"`
	Score    float64 `json:"score"`
}

// SetupRewardRoutes registers the reward endpoints.
func SetupRewardRoutes(app *fiber.App, svc *services.RewardService) {
	app.Post("/bonus", func(c *fiber.Ctx) error {
		var req walletRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		res, err := svc.WelcomeBonus(c.Context(), req.Wallet)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "txHash": res.TxHash})
	})

	app.Post("/daily-checkin", func(c *fiber.Ctx) error {
		var req walletRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		res, err := svc.DailyCheckIn(c.Context(), req.Wallet)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "txHash": res.TxHash})
	})

	app.Post("/mine", func(c *fiber.Ctx) error {
		var req walletRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		res, err := svc.StartMining(c.Context(), req.Wallet)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": res.Message})
	})

	app.Post("/claim", func(c *fiber.Ctx) error {
		var req walletRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		res, err := svc.ClaimMining(c.Context(), req.Wallet)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "txHash": res.TxHash})
	})

	app.Post("/submit-score", func(c *fiber.Ctx) error {
		var req scoreRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		res, err := svc.SubmitScore(c.Context(), req.Wallet, req.GameType, req.Score)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":     true,
			"txHash":      res.TxHash,
			"coinsEarned": res.CoinsEarned,
			"todayTotal":  res.TodayTotal,
		})
	})

	app.Post("/add-pending-reward", func(c *fiber.Ctx) error {
		var req scoreRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		res, err := svc.AccruePending(c.Context(), req.Wallet, req.GameType, req.Score)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":      true,
			"coinsEarned":  res.CoinsEarned,
			"todayPending": res.TodayPending,
		})
	})

	app.Post("/claim-game-rewards", func(c *fiber.Ctx) error {
		var req walletRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		res, err := svc.ClaimPending(c.Context(), req.Wallet)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":      true,
			"txHash":       res.TxHash,
			"totalClaimed": res.TotalClaimed,
			"breakdown":    res.Breakdown,
		})
	})

	app.Get("/game-stats/:wallet", func(c *fiber.Ctx) error {
		stats, err := svc.GameStatsFor(c.Context(), c.Params("wallet"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{
			"todayEarnings":    stats.TodayEarnings,
			"todayPending":     stats.TodayPending,
			"totalPending":     stats.TotalPending,
			"totalEarnedToday": stats.TotalEarnedToday,
		})
	})
}

// writeError maps the engine's error taxonomy onto the HTTP contract. The
// inconsistency case keeps its own code and the tx hash: the settlement
// already happened, so it must never look like an ordinary failure.
func writeError(c *fiber.Ctx, err error) error {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ve.Reason})
	}
	var nf *services.NotFoundError
	if errors.As(err, &nf) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	var ie *services.IneligibleError
	if errors.As(err, &ie) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ie.Reason})
	}
	var ic *services.InconsistencyError
	if errors.As(err, &ic) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "Reward settled but bookkeeping failed; support has been notified.",
			"code":   "settlement_inconsistency",
			"txHash": ic.TxHash,
		})
	}
	var te *services.TransferError
	if errors.As(err, &te) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Token transfer failed."})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
