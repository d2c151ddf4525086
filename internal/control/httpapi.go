package control

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusProvider is the narrow read of FSM state the /status endpoint
// needs. Declared here, satisfied by *fsm.Engine, so control never
// imports fsm directly (fsm imports control, not the other way around).
type StatusProvider interface {
	CurrentState() string
}

// Resumer is the narrow write the /resume endpoint needs: clearing the
// control surface's pause flag alone isn't enough to unstick a parked
// run (spec §5: "resume() clears pause and re-enters the current state's
// effect"), so the router also needs to drive that re-entry. Satisfied by
// *fsm.Engine.
type Resumer interface {
	Resume(ctx context.Context) error
}

// NewRouter builds the control surface's REST adapter (spec_full "New
// component: Control Surface REST API"), grounded on the teacher's
// handlers_executions.go conventions: a thin gin.Engine with JSON bodies
// and a uniform error envelope.
func NewRouter(surface *Surface, status StatusProvider, resumer Resumer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/pause", func(c *gin.Context) {
		surface.Pause()
		c.JSON(http.StatusOK, gin.H{"paused": true})
	})

	r.POST("/resume", func(c *gin.Context) {
		if err := resumer.Resume(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"paused": surface.IsPaused()})
	})

	r.POST("/max-steps", func(c *gin.Context) {
		var body struct {
			N int `json:"n"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if body.N < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "n must be >= 0"})
			return
		}
		surface.SetMaxSteps(body.N)
		c.JSON(http.StatusOK, gin.H{"max_steps": body.N})
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"state":        status.CurrentState(),
			"paused":       surface.IsPaused(),
			"max_steps":    surface.MaxSteps(),
			"step_counter": surface.StepCounter(),
		})
	})

	return r
}
