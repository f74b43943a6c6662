// Package workload generates synthetic, reproducible SQL statement streams
// over a small healthcare schema. The output feeds `beholdr observe`.
package workload

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
)

// Config describes the workload, parsed from YAML.
type Config struct {
	RunID    string `yaml:"runId"`
	Seed     uint64 `yaml:"seed"`
	TotalOps int    `yaml:"totalOps"`
	// Format is "sql" or "auditr".
	Format string `yaml:"format"`
	Users  []User `yaml:"users"`

	Mix struct {
		Select float64 `yaml:"select"`
		Update float64 `yaml:"update"`
		Insert float64 `yaml:"insert"`
	} `yaml:"mix"`

	Sensitivity struct {
		SensitiveOnly    float64 `yaml:"sensitive_only"`
		Mixed            float64 `yaml:"mixed"`
		NonSensitiveOnly float64 `yaml:"non_sensitive_only"`
	} `yaml:"sensitivity"`

	// Novel injects statements of shapes the regular mix never produces:
	// every Every-th operation from After on.
	Novel struct {
		After int `yaml:"after"`
		Every int `yaml:"every"`
	} `yaml:"novel"`
}

type User struct {
	Username string `yaml:"username"`
	Address  string `yaml:"address"`
}

// Statement is one generated query.
type Statement struct {
	SQL         string
	User        string
	Address     string
	Op          string
	Sensitivity string
	Novel       bool
}

// ReadConfig parses the YAML workload config.
func ReadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse workload config %s: %w", path, err)
	}
	return cfg, nil
}

// normalize fills defaults and scales the ratios to sum to 1.0.
func (c *Config) normalize() {
	if c.RunID == "" {
		c.RunID = "run"
	}
	if c.Format == "" {
		c.Format = "sql"
	}
	if len(c.Users) == 0 {
		c.Users = []User{{Username: "appuser", Address: "127.0.0.1"}}
	}

	tot := c.Mix.Select + c.Mix.Update + c.Mix.Insert
	if tot <= 0 {
		c.Mix.Select, c.Mix.Update, c.Mix.Insert = 0.7, 0.2, 0.1
		tot = 1
	}
	c.Mix.Select /= tot
	c.Mix.Update /= tot
	c.Mix.Insert /= tot

	tots := c.Sensitivity.SensitiveOnly + c.Sensitivity.Mixed + c.Sensitivity.NonSensitiveOnly
	if tots <= 0 {
		c.Sensitivity.SensitiveOnly, c.Sensitivity.Mixed, c.Sensitivity.NonSensitiveOnly = 0.4, 0.4, 0.2
		tots = 1
	}
	c.Sensitivity.SensitiveOnly /= tots
	c.Sensitivity.Mixed /= tots
	c.Sensitivity.NonSensitiveOnly /= tots
}

// Generator produces statements deterministically from the configured seed.
type Generator struct {
	cfg Config
	f   *gofakeit.Faker
	n   int
}

func NewGenerator(cfg Config) *Generator {
	cfg.normalize()
	return &Generator{cfg: cfg, f: gofakeit.New(cfg.Seed)}
}

func (g *Generator) Config() Config { return g.cfg }

func (g *Generator) pick(list []string) string {
	return list[g.f.Number(0, len(list)-1)]
}

func (g *Generator) pickOp() string {
	p := g.f.Float64()
	switch {
	case p < g.cfg.Mix.Select:
		return "SELECT"
	case p < g.cfg.Mix.Select+g.cfg.Mix.Update:
		return "UPDATE"
	default:
		return "INSERT"
	}
}

func (g *Generator) pickSensitivity() string {
	p := g.f.Float64()
	if p < g.cfg.Sensitivity.SensitiveOnly {
		return "sensitive_only"
	}
	p -= g.cfg.Sensitivity.SensitiveOnly
	if p < g.cfg.Sensitivity.Mixed {
		return "mixed"
	}
	return "non_sensitive_only"
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Next returns the next statement.
func (g *Generator) Next() Statement {
	g.n++
	u := g.cfg.Users[g.f.Number(0, len(g.cfg.Users)-1)]
	st := Statement{User: u.Username, Address: u.Address}

	if nv := g.cfg.Novel; nv.Every > 0 && g.n > nv.After && (g.n-nv.After)%nv.Every == 0 {
		st.Op, st.Sensitivity, st.Novel = "SELECT", "sensitive_only", true
		st.SQL = g.novel()
	} else {
		st.Op = g.pickOp()
		st.Sensitivity = g.pickSensitivity()
		st.SQL = g.statement(st.Op, st.Sensitivity)
	}

	comment := fmt.Sprintf("/* run_id=%s op=%s sensitivity=%s novel=%t user=%s */ ",
		g.cfg.RunID, strings.ToLower(st.Op), st.Sensitivity, st.Novel, st.User)
	st.SQL = comment + st.SQL
	return st
}

func (g *Generator) statement(op, sensitivity string) string {
	patientID := g.f.Number(1, 100000)
	switch op {
	case "SELECT":
		switch sensitivity {
		case "sensitive_only":
			return "SELECT p.patient_id, p.ssn, p.email, pm.card_last4 " +
				"FROM healthcare_patient p " +
				"JOIN payments_payment_method pm ON p.patient_id = pm.patient_id " +
				fmt.Sprintf("WHERE p.patient_id = %d LIMIT 5", patientID)
		case "mixed":
			return "SELECT p.email, e.diagnosis, o.total_price, pm.card_last4 " +
				"FROM healthcare_patient p " +
				"JOIN healthcare_encounter e ON p.patient_id = e.patient_id " +
				"JOIN pharmacy_order o ON p.patient_id = o.patient_id " +
				"JOIN payments_payment_method pm ON p.patient_id = pm.patient_id " +
				fmt.Sprintf("WHERE p.patient_id = %d LIMIT 5", patientID)
		default:
			return fmt.Sprintf("SELECT drug_id, name, price, stock_qty FROM pharmacy_drug WHERE drug_id = %d",
				g.f.Number(1, 5000))
		}
	case "UPDATE":
		switch sensitivity {
		case "sensitive_only":
			return fmt.Sprintf("UPDATE healthcare_patient SET phone_number = %s WHERE patient_id = %d",
				quote(g.f.Phone()), patientID)
		case "mixed":
			return fmt.Sprintf("UPDATE pharmacy_order SET status = %s, total_price = %.2f WHERE order_id = %d",
				quote(g.pick(orderStatuses)), g.f.Float64Range(1, 100), g.f.Number(1, 200000))
		default:
			return fmt.Sprintf("UPDATE pharmacy_drug SET stock_qty = %d WHERE drug_id = %d",
				g.f.Number(0, 500), g.f.Number(1, 5000))
		}
	default:
		switch sensitivity {
		case "non_sensitive_only":
			return fmt.Sprintf("INSERT INTO pharmacy_drug (name, dosage_form, strength, manufacturer, price) VALUES (%s, %s, %s, %s, %.2f)",
				quote(g.pick(drugNames)), quote(g.pick(dosageForms)), quote(g.pick(strengths)),
				quote(g.pick(manufacturers)), g.f.Float64Range(1, 300))
		default:
			return fmt.Sprintf("INSERT INTO healthcare_encounter (patient_id, diagnosis, notes) VALUES (%d, %s, %s)",
				patientID, quote(g.pick(diagnoses)), quote(g.f.LastName()))
		}
	}
}

// novel returns a bulk read of sensitive columns that the regular mix
// never issues.
func (g *Generator) novel() string {
	return fmt.Sprintf("SELECT p.ssn, p.email, p.phone_number, COUNT(*) FROM healthcare_patient p "+
		"WHERE p.last_name LIKE %s GROUP BY p.ssn, p.email, p.phone_number",
		quote(g.f.LastName()[:1]+"%"))
}

// auditEvent is the NDJSON line shape read by the auditr input format.
type auditEvent struct {
	EventID   string `json:"event_id"`
	Timestamp string `json:"timestamp"`
	DBSystem  string `json:"db_system"`
	DBUser    string `json:"db_user"`
	ClientIP  string `json:"client_ip"`
	QueryType string `json:"query_type"`
	RawQuery  string `json:"raw_query"`
}

// Write emits TotalOps statements to w in the configured format and
// returns how many were written.
func Write(w io.Writer, g *Generator) (int, error) {
	log := logger.L()
	cfg := g.Config()
	log.Infow("starting workload generation",
		"run_id", cfg.RunID,
		"ops", cfg.TotalOps,
		"format", cfg.Format,
		"seed", cfg.Seed)

	var enc *json.Encoder
	switch cfg.Format {
	case "sql":
	case "auditr":
		enc = json.NewEncoder(w)
	default:
		return 0, fmt.Errorf("unsupported workload format: %s", cfg.Format)
	}

	stats := map[string]int{}
	for i := 0; i < cfg.TotalOps; i++ {
		st := g.Next()
		if st.Novel {
			stats["novel"]++
		} else {
			stats[strings.ToLower(st.Op)]++
		}

		var err error
		if enc != nil {
			err = enc.Encode(auditEvent{
				EventID:   uuid.NewString(),
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
				DBSystem:  "mysql",
				DBUser:    st.User,
				ClientIP:  st.Address,
				QueryType: st.Op,
				RawQuery:  st.SQL,
			})
		} else {
			_, err = fmt.Fprintf(w, "%s;\n", st.SQL)
		}
		if err != nil {
			return i, fmt.Errorf("write statement %d: %w", i, err)
		}
	}

	log.Infow("workload generation complete",
		"select", stats["select"],
		"update", stats["update"],
		"insert", stats["insert"],
		"novel", stats["novel"])
	return cfg.TotalOps, nil
}
