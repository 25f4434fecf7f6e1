package sink

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/handler"
	"github.com/kaans/mqtli/internal/metrics"
	"github.com/kaans/mqtli/internal/payload"
	"github.com/kaans/mqtli/internal/sparkplug"
)

// sqlSinks caches one *sqlx.DB per distinct connection string, grounded on
// the teacher's internal/database pooled-connection-per-DSN pattern.
type sqlSinks struct {
	mu   sync.Mutex
	dbs  map[string]*sqlx.DB
	log  logrus.FieldLogger
}

func newSQLSinks(log logrus.FieldLogger) *sqlSinks {
	return &sqlSinks{dbs: make(map[string]*sqlx.DB), log: log}
}

func (s *sqlSinks) closeAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *sqlSinks) dbFor(connectionString string) (*sqlx.DB, string, error) {
	scheme, err := config.SqlScheme(connectionString)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[connectionString]; ok {
		return db, scheme, nil
	}

	driverName, dsn, err := driverDSN(scheme, connectionString)
	if err != nil {
		return nil, "", err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrSqlConnectionFailed, err)
	}
	s.dbs[connectionString] = db
	return db, scheme, nil
}

// driverDSN translates a mqtli connection-string URL into the driver name
// and DSN string each registered driver expects natively.
func driverDSN(scheme, connectionString string) (string, string, error) {
	switch scheme {
	case "sqlite":
		u, err := url.Parse(connectionString)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrSqlConnectionFailed, err)
		}
		path := u.Opaque
		if path == "" {
			path = u.Host + u.Path
		}
		return "sqlite", path, nil

	case "postgres":
		// lib/pq accepts a postgres:// URL directly.
		return "postgres", connectionString, nil

	case "mysql":
		u, err := url.Parse(connectionString)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrSqlConnectionFailed, err)
		}
		dbName := strings.TrimPrefix(u.Path, "/")
		dsn := fmt.Sprintf("%s@tcp(%s)/%s", u.User.String(), u.Host, dbName)
		return "mysql", dsn, nil

	default:
		return "", "", fmt.Errorf("sink: unsupported sql scheme %q", scheme)
	}
}

// write executes target.Statement as a templated INSERT, per spec.md 4.9.
// For Sparkplug edge-node payloads it issues one INSERT per metric.
func (s *sqlSinks) write(event handler.MessageEvent, target config.OutputTargetSql, converted payload.Format) error {
	db, scheme, err := s.dbFor(target.ConnectionString)
	if err != nil {
		return err
	}

	base := commonTokens(event, converted)

	if event.Payload.Kind == payload.KindSparkplug && event.Payload.ProtoMessage == sparkplug.PayloadMessage {
		rows, handled, err := s.sparkplugMetricTokens(event)
		if err != nil {
			s.log.WithError(err).WithField("topic", event.IncomingTopic).Warn("sink: failed to decode sparkplug metrics for sql sink")
		} else if handled {
			for _, row := range rows {
				if err := execTemplate(db, target.Statement, mergeTokens(base, row)); err != nil {
					return err
				}
				metrics.SqlInsertsTotal.WithLabelValues(string(scheme)).Inc()
			}
			return nil
		}
	}

	if err := execTemplate(db, target.Statement, base); err != nil {
		return err
	}
	metrics.SqlInsertsTotal.WithLabelValues(string(scheme)).Inc()
	return nil
}

// sparkplugMetricTokens decodes the event's Sparkplug payload and, if it is
// an edge-node message, returns one token set per metric. handled is false
// for non-edge-node (host application) Sparkplug messages, which fall back
// to the common token set only.
func (s *sqlSinks) sparkplugMetricTokens(event handler.MessageEvent) (rows []map[string]tokenValue, handled bool, err error) {
	topic, err := sparkplug.Parse(event.IncomingTopic)
	if err != nil {
		return nil, false, err
	}
	if topic.EdgeNode == nil {
		return nil, false, nil
	}

	schema, err := sparkplug.Schema()
	if err != nil {
		return nil, false, err
	}
	msg, err := schema.Unmarshal(sparkplug.PayloadMessage, event.Payload.Raw)
	if err != nil {
		return nil, false, err
	}

	metricsField, err := msg.TryGetFieldByName("metrics")
	if err != nil {
		return nil, false, err
	}
	metrics, _ := metricsField.([]any)

	e := topic.EdgeNode
	deviceID := ""
	if e.DeviceID != nil {
		deviceID = *e.DeviceID
	}
	metricLevel := strings.Join(e.MetricLevels, "/")

	for _, m := range metrics {
		metric, ok := m.(interface {
			TryGetFieldByName(string) (any, error)
		})
		if !ok {
			continue
		}
		name, _ := fieldString(metric, "name")
		value, isBinary := metricValueToken(metric)

		row := map[string]tokenValue{
			"sp_version":       {str: topic.EdgeNode.Version},
			"sp_message_type":  {str: string(e.MessageType)},
			"sp_group_id":      {str: e.GroupID},
			"sp_edge_node_id":  {str: e.EdgeNodeID},
			"sp_device_id":     {str: deviceID},
			"sp_metric_level":  {str: metricLevel},
			"sp_metric_name":   {str: name},
		}
		if isBinary {
			row["sp_metric_value"] = tokenValue{bytes: value.([]byte)}
		} else {
			row["sp_metric_value"] = tokenValue{str: fmt.Sprintf("%v", value)}
		}
		rows = append(rows, row)
	}

	return rows, true, nil
}

func fieldString(metric interface{ TryGetFieldByName(string) (any, error) }, name string) (string, bool) {
	v, err := metric.TryGetFieldByName(name)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// metricValueToken extracts a Sparkplug Metric's oneof value, returning the
// raw Go value and whether it is binary (bytes_value), which must be bound
// out-of-band rather than inlined as SQL literal text.
func metricValueToken(metric interface{ TryGetFieldByName(string) (any, error) }) (any, bool) {
	for _, field := range []string{"int_value", "long_value", "float_value", "double_value", "boolean_value", "string_value"} {
		if v, err := metric.TryGetFieldByName(field); err == nil && v != nil {
			if isZeroOneof(field, v) {
				continue
			}
			return v, false
		}
	}
	if v, err := metric.TryGetFieldByName("bytes_value"); err == nil {
		if b, ok := v.([]byte); ok && len(b) > 0 {
			return b, true
		}
	}
	return nil, false
}

// isZeroOneof guards against protoreflect returning a oneof field's zero
// value even when that branch isn't the one actually set; dynamic.Message
// doesn't expose "which oneof case is active" through TryGetFieldByName
// alone, so a zero scalar is treated as "not this branch" and the next
// candidate field is tried.
func isZeroOneof(field string, v any) bool {
	switch field {
	case "boolean_value":
		b, _ := v.(bool)
		return !b
	case "string_value":
		s, _ := v.(string)
		return s == ""
	default:
		return fmt.Sprintf("%v", v) == "0"
	}
}

// tokenValue is a substitution value: either inline-literal text or a
// binary value that must go through a positional bind parameter.
type tokenValue struct {
	str   string
	bytes []byte
}

func commonTokens(event handler.MessageEvent, converted payload.Format) map[string]tokenValue {
	now := time.Now()
	body, _ := converted.Bytes()

	tokens := map[string]tokenValue{
		"topic":              {str: event.IncomingTopic},
		"qos":                {str: strconv.Itoa(int(event.IncomingQos))},
		"retain":             {str: strconv.FormatBool(event.IncomingRetain)},
		"created_at":         {str: strconv.FormatInt(now.Unix(), 10)},
		"created_at_millis":  {str: strconv.FormatInt(now.UnixMilli(), 10)},
		"created_at_iso":     {str: now.Format(time.RFC3339)},
	}
	tokens["payload"] = tokenValue{bytes: body}
	return tokens
}

func mergeTokens(base, overlay map[string]tokenValue) map[string]tokenValue {
	out := make(map[string]tokenValue, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// execTemplate substitutes every {{token}} occurrence in statement: string
// tokens are inlined as escaped SQL literals, binary tokens become
// positional bind parameters ("?"), per spec.md 4.9.
func execTemplate(db *sqlx.DB, statement string, tokens map[string]tokenValue) error {
	var args []any
	sql := statement

	for name, value := range tokens {
		placeholder := "{{" + name + "}}"
		if !strings.Contains(sql, placeholder) {
			continue
		}
		if value.bytes != nil {
			args = append(args, value.bytes)
			sql = strings.ReplaceAll(sql, placeholder, "?")
		} else {
			sql = strings.ReplaceAll(sql, placeholder, quoteSQLLiteral(value.str))
		}
	}

	sql = db.Rebind(sql)
	if _, err := db.Exec(sql, args...); err != nil {
		return fmt.Errorf("%w: %v", ErrSqlStatementFailed, err)
	}
	return nil
}

func quoteSQLLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
