package handler

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts every handler under /api.
func RegisterRoutes(app *fiber.App, quiz *QuizHandler, courses *CourseHandler, assistant *AssistantHandler, health *HealthHandler) {
	api := app.Group("/api")

	api.Get("/health", health.Health)

	api.Get("/courses", courses.ListCourses)
	api.Post("/courses/:course/topics", courses.ValidateTopics)

	api.Post("/quiz", quiz.StartQuiz)
	api.Delete("/quiz", quiz.Reset)
	api.Get("/quiz/current", quiz.CurrentQuestion)
	api.Post("/quiz/next", quiz.NextQuestion)
	api.Post("/quiz/answer", quiz.SubmitAnswer)
	api.Get("/quiz/progress", quiz.Progress)
	api.Get("/quiz/summary", quiz.Summary)
	api.Get("/quiz/results/:session_id", quiz.Result)

	api.Post("/ask", assistant.Ask)
}
