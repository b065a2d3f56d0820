package model

import "time"

// User is referenced by tasks through the assignee relation. Password and
// GitHub access token never leave the server.
type User struct {
	ID                int     `gorm:"primaryKey" json:"id"`
	Username          string  `gorm:"uniqueIndex;not null" json:"username"`
	Password          string  `gorm:"not null" json:"-"`
	Name              string  `gorm:"not null" json:"name"`
	Email             string  `gorm:"not null" json:"email"`
	Avatar            *string `json:"avatar"`
	GithubID          *string `gorm:"index" json:"githubId"`
	GithubUsername    *string `json:"githubUsername"`
	GithubAccessToken *string `json:"-"`
}

// Sprint is a bounded time window. At most one sprint is active at any time;
// sprints are never deleted.
type Sprint struct {
	ID            int       `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"not null" json:"name"`
	Description   *string   `json:"description"`
	StartDate     time.Time `gorm:"not null" json:"startDate"`
	EndDate       time.Time `gorm:"not null" json:"endDate"`
	IsActive      bool      `gorm:"default:false" json:"isActive"`
	HackathonMode bool      `gorm:"default:false" json:"hackathonMode"`

	Tasks []Task `gorm:"foreignKey:SprintID;constraint:OnDelete:CASCADE" json:"tasks,omitempty"`
}

type Task struct {
	ID             int        `gorm:"primaryKey" json:"id"`
	Title          string     `gorm:"not null" json:"title"`
	Description    *string    `json:"description"`
	Status         TaskStatus `gorm:"not null;default:backlog" json:"status"`
	Type           TaskType   `gorm:"not null;default:other" json:"type"`
	DueDate        *time.Time `json:"dueDate"`
	GithubPrURL    *string    `gorm:"column:github_pr_url" json:"githubPrUrl"`
	GithubPrNumber *int       `gorm:"column:github_pr_number;index" json:"githubPrNumber"`
	CiStatus       *string    `gorm:"column:ci_status" json:"ciStatus"`
	Progress       int        `gorm:"default:0" json:"progress"`
	AssigneeID     *int       `json:"assigneeId"`
	SprintID       *int       `gorm:"index" json:"sprintId"`

	Assignee    *User        `gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL" json:"assignee,omitempty"`
	Deployments []Deployment `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"deployments,omitempty"`
}

// Deployment is a CI/deploy run tied to exactly one task. CompletedAt is
// derived from the status, never client-supplied.
type Deployment struct {
	ID          int              `gorm:"primaryKey" json:"id"`
	TaskID      int              `gorm:"not null;index" json:"taskId"`
	Status      DeploymentStatus `gorm:"not null;default:pending" json:"status"`
	URL         *string          `json:"url"`
	CreatedAt   time.Time        `json:"createdAt"`
	CompletedAt *time.Time       `json:"completedAt"`
}
