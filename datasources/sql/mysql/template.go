package mysql

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cube2222/connplan/datasources/sql"
	"github.com/cube2222/connplan/predicate"
)

type MySQLTemplate struct{}

func (t *MySQLTemplate) GetAvailableFilters() predicate.Operators {
	return predicate.NewOperators(predicate.AllOperators...)
}

func (t *MySQLTemplate) GetDSNAndDriverName(location sql.Location) (string, string, error) {
	cfg := mysql.NewConfig()
	cfg.User = location.User
	cfg.Passwd = location.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(location.Host, strconv.Itoa(location.Port))
	cfg.DBName = location.Database
	cfg.ParseTime = true
	if len(location.Params) > 0 {
		cfg.Params = make(map[string]string, len(location.Params))
		for k, v := range location.Params {
			cfg.Params[k] = v
		}
	}

	mysqlInfo := cfg.FormatDSN()
	if _, err := mysql.ParseDSN(mysqlInfo); err != nil {
		return "", "", errors.Wrap(err, "couldn't parse mysql dsn")
	}

	return mysqlInfo, "mysql", nil
}

func (t *MySQLTemplate) GetURL(location sql.Location) string {
	return fmt.Sprintf("mysql://%s@%s/%s", location.User, net.JoinHostPort(location.Host, strconv.Itoa(location.Port)), location.Database)
}

func (t *MySQLTemplate) GetBindType() int {
	return sqlx.QUESTION
}

var template = &MySQLTemplate{}

func init() {
	sql.RegisterTemplate(template, "mysql", "mariadb")
}
